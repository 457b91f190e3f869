package kafka_config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != DefaultKafkaBrokers {
		t.Errorf("brokers = %v", cfg.Brokers)
	}
	if cfg.ConsumerRetryBackoff != DefaultConsumerRetryBackoff {
		t.Errorf("retry backoff = %s", cfg.ConsumerRetryBackoff)
	}
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set(EnvKafkaBrokers, "k1:9092, k2:9092")
	v.Set(EnvKafkaProducerCompression, "ZSTD")
	v.Set(EnvKafkaConsumerMaxRetries, 5)
	v.Set(EnvKafkaConsumerRetryBackoff, "2s")

	cfg, err := FromViper(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.Brokers)
	}
	if cfg.ProducerCompression != "zstd" {
		t.Errorf("compression = %q", cfg.ProducerCompression)
	}
	if cfg.ConsumerMaxRetries != 5 || cfg.ConsumerRetryBackoff != 2*time.Second {
		t.Errorf("retries = %d backoff = %s", cfg.ConsumerMaxRetries, cfg.ConsumerRetryBackoff)
	}
}

func TestFromViper_CollectsErrors(t *testing.T) {
	v := viper.New()
	v.Set(EnvKafkaProducerCompression, "brotli")
	v.Set(EnvKafkaProducerRequireAcks, 2)
	v.Set(EnvKafkaConsumerMaxRetries, -1)

	_, err := FromViper(v)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"1. ", "2. ", "3. ", "ProducerCompression", "ProducerRequireAcks", "ConsumerMaxRetries"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}
