package config

import (
	"fmt"
	"parkslot/pkg/client"
	"parkslot/pkg/logger"
	"parkslot/pkg/sanitizer"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string
	Timezone  string
	Location  *time.Location

	StorageBackend string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	PostgresDSN          string
	PostgresMaxOpenConns int
	PostgresMaxIdleConns int

	OfferStore         string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	OfferTTL           time.Duration
	OfferSweepSchedule string

	SlotLockTTL     time.Duration
	SlotLockRetries int
	SlotLockBackoff time.Duration

	JWTSecret string

	NotificationChannels      []string
	SendGridAPIKey            string
	SendGridFromEmail         string
	SendGridFromName          string
	KafkaNotificationTopic    string
	KafkaNotificationDLQTopic string
	KafkaNotificationGroup    string

	RateLimitRPS   float64
	RateLimitBurst int

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	CORSAllowedOrigins []string

	Log    *logger.Logger
	Client *client.Client
}

// Load reads an optional .env file, then the process environment.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	return FromViper(v, serviceName)
}

func FromViper(v *viper.Viper, serviceName string) *Config {
	setDefaults(v)

	cfg := &Config{
		Port:      v.GetString(EnvPort),
		LogLevel:  v.GetString(EnvLogLevel),
		LogFormat: v.GetString(EnvLogFormat),
		Timezone:  v.GetString(EnvTimezone),

		StorageBackend: strings.ToLower(v.GetString(EnvStorageBackend)),

		MongoURI:          v.GetString(EnvMongoURI),
		MongoDatabaseName: v.GetString(EnvMongoDatabaseName),
		MongoConnTimeout:  v.GetDuration(EnvMongoConnTimeout),

		PostgresDSN:          v.GetString(EnvPostgresDSN),
		PostgresMaxOpenConns: v.GetInt(EnvPostgresMaxOpenConns),
		PostgresMaxIdleConns: v.GetInt(EnvPostgresMaxIdleConns),

		OfferStore:         strings.ToLower(v.GetString(EnvOfferStore)),
		RedisAddr:          v.GetString(EnvRedisAddr),
		RedisPassword:      v.GetString(EnvRedisPassword),
		RedisDB:            v.GetInt(EnvRedisDB),
		OfferTTL:           v.GetDuration(EnvOfferTTL),
		OfferSweepSchedule: v.GetString(EnvOfferSweepSchedule),

		SlotLockTTL:     v.GetDuration(EnvSlotLockTTL),
		SlotLockRetries: v.GetInt(EnvSlotLockRetries),
		SlotLockBackoff: v.GetDuration(EnvSlotLockBackoff),

		JWTSecret: v.GetString(EnvJWTSecret),

		NotificationChannels:      splitList(v.GetString(EnvNotificationChannels)),
		SendGridAPIKey:            v.GetString(EnvSendGridAPIKey),
		SendGridFromEmail:         v.GetString(EnvSendGridFromEmail),
		SendGridFromName:          v.GetString(EnvSendGridFromName),
		KafkaNotificationTopic:    v.GetString(EnvKafkaNotificationTopic),
		KafkaNotificationDLQTopic: v.GetString(EnvKafkaNotificationDLQTopic),
		KafkaNotificationGroup:    v.GetString(EnvKafkaNotificationGroup),

		RateLimitRPS:   v.GetFloat64(EnvRateLimitRPS),
		RateLimitBurst: v.GetInt(EnvRateLimitBurst),

		RequestTimeout: v.GetDuration(EnvRequestTimeout),
		IdempotencyTTL: v.GetDuration(EnvIdempotencyTTL),
		MaxRequestSize: v.GetInt(EnvMaxRequestSize),

		ReadTimeout:     v.GetDuration(EnvReadTimeout),
		WriteTimeout:    v.GetDuration(EnvWriteTimeout),
		IdleTimeout:     v.GetDuration(EnvIdleTimeout),
		ShutdownTimeout: v.GetDuration(EnvShutdownTimeout),

		CORSAllowedOrigins: splitList(v.GetString(EnvCORSAllowedOrigins)),

		Client: client.NewClient(),
	}

	cfg.Location, _ = time.LoadLocation(cfg.Timezone)
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
		Service:   serviceName,
	})
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(EnvPort, DefaultPort)
	v.SetDefault(EnvLogLevel, DefaultLogLevel)
	v.SetDefault(EnvLogFormat, DefaultLogFormat)
	v.SetDefault(EnvTimezone, DefaultTimezone)
	v.SetDefault(EnvStorageBackend, DefaultStorageBackend)
	v.SetDefault(EnvMongoURI, DefaultMongoURI)
	v.SetDefault(EnvMongoDatabaseName, DefaultMongoDatabaseName)
	v.SetDefault(EnvMongoConnTimeout, DefaultMongoConnTimeout)
	v.SetDefault(EnvPostgresDSN, DefaultPostgresDSN)
	v.SetDefault(EnvPostgresMaxOpenConns, DefaultPostgresMaxOpenConns)
	v.SetDefault(EnvPostgresMaxIdleConns, DefaultPostgresMaxIdleConns)
	v.SetDefault(EnvOfferStore, DefaultOfferStore)
	v.SetDefault(EnvRedisAddr, DefaultRedisAddr)
	v.SetDefault(EnvRedisDB, DefaultRedisDB)
	v.SetDefault(EnvOfferTTL, DefaultOfferTTL)
	v.SetDefault(EnvOfferSweepSchedule, DefaultOfferSweepSchedule)
	v.SetDefault(EnvSlotLockTTL, DefaultSlotLockTTL)
	v.SetDefault(EnvSlotLockRetries, DefaultSlotLockRetries)
	v.SetDefault(EnvSlotLockBackoff, DefaultSlotLockBackoff)
	v.SetDefault(EnvNotificationChannels, DefaultNotificationChannels)
	v.SetDefault(EnvSendGridFromName, DefaultSendGridFromName)
	v.SetDefault(EnvKafkaNotificationTopic, DefaultKafkaNotificationTopic)
	v.SetDefault(EnvKafkaNotificationDLQTopic, DefaultKafkaNotificationDLQTopic)
	v.SetDefault(EnvKafkaNotificationGroup, DefaultKafkaNotificationGroup)
	v.SetDefault(EnvRateLimitRPS, DefaultRateLimitRPS)
	v.SetDefault(EnvRateLimitBurst, DefaultRateLimitBurst)
	v.SetDefault(EnvRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(EnvIdempotencyTTL, DefaultIdempotencyTTL)
	v.SetDefault(EnvMaxRequestSize, DefaultMaxRequestSize)
	v.SetDefault(EnvReadTimeout, DefaultReadTimeout)
	v.SetDefault(EnvWriteTimeout, DefaultWriteTimeout)
	v.SetDefault(EnvIdleTimeout, DefaultIdleTimeout)
	v.SetDefault(EnvShutdownTimeout, DefaultShutdownTimeout)
	v.SetDefault(EnvCORSAllowedOrigins, DefaultCORSAllowedOrigins)
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresDSN, cfg.PostgresMaxOpenConns, cfg.PostgresMaxIdleConns)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

// NotifiesVia reports whether channel is enabled in NOTIFICATION_CHANNELS.
func (cfg *Config) NotifiesVia(channel string) bool {
	return slices.Contains(cfg.NotificationChannels, channel)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.Location == nil {
		errors = append(errors, fmt.Sprintf("Timezone must be a valid IANA zone name, got: %s", cfg.Timezone))
	}

	switch cfg.StorageBackend {
	case StorageMemory:
	case StorageMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
		if cfg.SlotLockTTL <= 0 {
			errors = append(errors, fmt.Sprintf("SlotLockTTL must be positive, got: %s", cfg.SlotLockTTL))
		}
		if cfg.SlotLockRetries < 0 {
			errors = append(errors, fmt.Sprintf("SlotLockRetries cannot be negative, got: %d", cfg.SlotLockRetries))
		}
		if cfg.SlotLockBackoff <= 0 {
			errors = append(errors, fmt.Sprintf("SlotLockBackoff must be positive, got: %s", cfg.SlotLockBackoff))
		}
	case StoragePostgres:
		if !regexp.MustCompile(`^postgres(ql)?://`).MatchString(cfg.PostgresDSN) {
			errors = append(errors, "PostgresDSN must start with 'postgres://' or 'postgresql://'")
		}
		if cfg.PostgresMaxOpenConns <= 0 {
			errors = append(errors, fmt.Sprintf("PostgresMaxOpenConns must be positive, got: %d", cfg.PostgresMaxOpenConns))
		}
	default:
		errors = append(errors, fmt.Sprintf("StorageBackend must be one of [memory, mongo, postgres], got: %s", cfg.StorageBackend))
	}

	switch cfg.OfferStore {
	case OfferStoreMemory:
	case OfferStoreRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty when OfferStore is redis")
		}
	default:
		errors = append(errors, fmt.Sprintf("OfferStore must be one of [memory, redis], got: %s", cfg.OfferStore))
	}
	if cfg.OfferTTL <= 0 {
		errors = append(errors, fmt.Sprintf("OfferTTL must be positive, got: %s", cfg.OfferTTL))
	}
	if cfg.OfferSweepSchedule == "" {
		errors = append(errors, "OfferSweepSchedule cannot be empty")
	}

	if len(cfg.JWTSecret) < 16 {
		errors = append(errors, "JWTSecret must be at least 16 characters")
	}

	if len(cfg.NotificationChannels) == 0 {
		errors = append(errors, "NotificationChannels must list at least one channel")
	}
	for _, ch := range cfg.NotificationChannels {
		switch ch {
		case ChannelLog, ChannelKafka:
		case ChannelSendGrid:
			if cfg.SendGridAPIKey == "" || cfg.SendGridFromEmail == "" {
				errors = append(errors, "SendGridAPIKey and SendGridFromEmail are required for the sendgrid channel")
			}
		default:
			errors = append(errors, fmt.Sprintf("Unknown notification channel: %s", ch))
		}
	}
	if cfg.NotifiesVia(ChannelKafka) && cfg.KafkaNotificationTopic == "" {
		errors = append(errors, "KafkaNotificationTopic cannot be empty for the kafka channel")
	}

	if cfg.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRPS must be positive, got: %v", cfg.RateLimitRPS))
	}
	if cfg.RateLimitBurst <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitBurst must be positive, got: %d", cfg.RateLimitBurst))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"timezone", cfg.Timezone,
		"storage_backend", cfg.StorageBackend,
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"postgres_dsn", redactURI(cfg.PostgresDSN),
		"offer_store", cfg.OfferStore,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"offer_ttl", cfg.OfferTTL,
		"offer_sweep_schedule", cfg.OfferSweepSchedule,
		"slot_lock_ttl", cfg.SlotLockTTL,
		"slot_lock_retries", cfg.SlotLockRetries,
		"slot_lock_backoff", cfg.SlotLockBackoff,
		"jwt_secret_set", cfg.JWTSecret != "",
		"notification_channels", cfg.NotificationChannels,
		"sendgrid_key_set", cfg.SendGridAPIKey != "",
		"kafka_notification_topic", cfg.KafkaNotificationTopic,
		"rate_limit_rps", cfg.RateLimitRPS,
		"rate_limit_burst", cfg.RateLimitBurst,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"cors_allowed_origins", cfg.CORSAllowedOrigins,
	)
}

var credentialRegex = regexp.MustCompile(`([a-z+]+://)[^:/@]+:[^@]+@`)

func redactURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

// splitList parses a comma separated env value into distinct lowercase entries.
func splitList(raw string) []string {
	return sanitizer.SanitizeSlice(strings.Split(raw, ","), func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
