package main

import (
	"time"

	"parkslot/internal/availability"
	bookingshandler "parkslot/internal/bookings/handler"
	bookingsrepository "parkslot/internal/bookings/repository"
	bookingsservice "parkslot/internal/bookings/service"
	bookingsvalidator "parkslot/internal/bookings/validator"
	"parkslot/internal/notification"
	"parkslot/internal/offers"
	slotshandler "parkslot/internal/slots/handler"
	slotsrepository "parkslot/internal/slots/repository"
	slotsservice "parkslot/internal/slots/service"
	slotsvalidator "parkslot/internal/slots/validator"
	"parkslot/pkg/app"
	"parkslot/pkg/auth"
	"parkslot/pkg/config"
	"parkslot/pkg/contracts"
	"parkslot/pkg/db/memory"
	"parkslot/pkg/kafka"
	kafka_config "parkslot/pkg/kafka/config"
	kafka_middleware "parkslot/pkg/kafka/middleware"
	"parkslot/pkg/metrics"
)

const ServiceName = "parkslot"

type repositories struct {
	slots    slotsrepository.SlotRepository
	bookings bookingsrepository.BookingRepository
}

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.Log.Info("Starting Parkslot reservation service")
	m := metrics.New()
	serverApp := app.NewApplication(cfg, m)

	repos := initRepositories(cfg, m)
	offerStore, sweeper := initOfferStore(cfg)
	gateway, closers := initGateway(cfg, m)
	serverApp.OnShutdown(closers...)
	if sweeper != nil {
		sweeper.Start()
		serverApp.OnShutdown(contracts.CloserFunc(func() error {
			sweeper.Stop()
			return nil
		}))
	}

	slotValidator := slotsvalidator.NewSlotValidator(cfg.Log)
	slotService := slotsservice.NewSlotService(repos.slots, slotValidator, cfg)

	engine := availability.NewEngine(repos.slots, repos.bookings)
	bookingService := bookingsservice.NewBookingService(
		repos.bookings,
		repos.slots,
		engine,
		offerStore,
		gateway,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		m,
		bookingsservice.RealTimeProvider{},
		cfg,
	)

	serverApp.SetApp(
		auth.NewTokenVerifier(cfg.JWTSecret),
		slotshandler.NewSlotHandler(slotService, cfg.Log),
		bookingshandler.NewBookingHandler(bookingService, cfg.Location, cfg.Log),
	)
	serverApp.Run()
}

func initRepositories(cfg *config.Config, m *metrics.Metrics) repositories {
	switch cfg.StorageBackend {
	case config.StorageMongo:
		cfg.SetMongo()
		db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
		locks := bookingsrepository.NewSlotLockRepository(db, cfg.SlotLockTTL, cfg.SlotLockRetries, cfg.SlotLockBackoff)
		cfg.Log.Info("Repositories initialized", "backend", cfg.StorageBackend, "database", cfg.MongoDatabaseName)
		return repositories{
			slots:    slotsrepository.NewMongoSlotRepository(cfg, locks),
			bookings: bookingsrepository.NewMongoBookingRepository(cfg, locks, m),
		}

	case config.StoragePostgres:
		cfg.SetPostgres()
		cfg.Log.Info("Repositories initialized", "backend", cfg.StorageBackend)
		return repositories{
			slots:    slotsrepository.NewPostgresSlotRepository(cfg.Client.Postgres),
			bookings: bookingsrepository.NewPostgresBookingRepository(cfg.Client.Postgres),
		}

	default:
		arena := memory.NewArena()
		cfg.Log.Warn("Using in-memory storage; all data is lost on restart")
		return repositories{
			slots:    slotsrepository.NewMemorySlotRepository(arena),
			bookings: bookingsrepository.NewMemoryBookingRepository(arena),
		}
	}
}

// initOfferStore returns the sweeper only for stores that do not expire entries themselves.
func initOfferStore(cfg *config.Config) (offers.Store, *offers.Sweeper) {
	if cfg.OfferStore == config.OfferStoreRedis {
		cfg.SetRedis()
		cfg.Log.Info("Offer store initialized", "store", cfg.OfferStore, "ttl", cfg.OfferTTL)
		return offers.NewRedisStore(cfg.Client.Redis, time.Now), nil
	}

	store := offers.NewInMemoryStore(time.Now)
	sweeper, err := offers.NewSweeper(store, cfg.OfferSweepSchedule, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Invalid offer sweep schedule", "schedule", cfg.OfferSweepSchedule, "error", err)
	}
	cfg.Log.Info("Offer store initialized", "store", config.OfferStoreMemory, "ttl", cfg.OfferTTL)
	return store, sweeper
}

func initGateway(cfg *config.Config, m *metrics.Metrics) (notification.Gateway, []contracts.Closer) {
	gateway := notification.NewMultiGateway()
	var closers []contracts.Closer

	if cfg.NotifiesVia(config.ChannelLog) {
		gateway.Add(notification.ChannelLog, notification.NewLogGateway(cfg.Log))
	}
	if cfg.NotifiesVia(config.ChannelSendGrid) {
		gateway.Add(notification.ChannelSendGrid,
			notification.NewSendGridGateway(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName))
	}
	if cfg.NotifiesVia(config.ChannelKafka) {
		kafkaCfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		kafkaCfg.LogConfiguration(cfg.Log.Info)

		producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.KafkaNotificationTopic, cfg.KafkaNotificationDLQTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		if kafkaCfg.EnableMiddleware {
			producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
			producer.Use(kafka_middleware.MetricsProducerMiddleware(m))
		}
		gateway.Add(notification.ChannelKafka, notification.NewKafkaGateway(producer))
		closers = append(closers, producer)
	}

	cfg.Log.Info("Notification gateway initialized", "channels", cfg.NotificationChannels, "active", gateway.Len())
	return gateway, closers
}
