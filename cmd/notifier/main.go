package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"parkslot/internal/notification"
	"parkslot/pkg/config"
	"parkslot/pkg/kafka"
	kafka_config "parkslot/pkg/kafka/config"
	kafka_middleware "parkslot/pkg/kafka/middleware"
	"parkslot/pkg/metrics"
)

const ServiceName = "parkslot-notifier"

// The notifier drains confirmation events published by the reservation service and
// delivers them through SendGrid, so provider outages never slow a commit down.
func main() {
	cfg := config.Load(ServiceName)
	if cfg.SendGridAPIKey == "" || cfg.SendGridFromEmail == "" {
		cfg.Log.Fatal("SENDGRID_API_KEY and SENDGRID_FROM_EMAIL are required by the notifier")
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	m := metrics.New()
	gateway := notification.NewSendGridGateway(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.Log,
		cfg.KafkaNotificationTopic,
		cfg.KafkaNotificationGroup,
		cfg.KafkaNotificationDLQTopic,
		notification.NewRelay(gateway, cfg.Log),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware(m))
	}

	metricsServer := &http.Server{Addr: ":" + cfg.Port, Handler: m.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Log.Error("Metrics server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Notifier consuming",
		"topic", cfg.KafkaNotificationTopic,
		"group", cfg.KafkaNotificationGroup,
		"dlq_topic", cfg.KafkaNotificationDLQTopic,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	cfg.Log.Info("Shutting down notifier")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		cfg.Log.Error("Metrics server shutdown failed", "error", err)
	}
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Consumer close failed", "error", err)
	}
}
