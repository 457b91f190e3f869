package config

const (
	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvTimezone  = "TIMEZONE"

	EnvStorageBackend = "STORAGE_BACKEND"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresDSN          = "POSTGRES_DSN"
	EnvPostgresMaxOpenConns = "POSTGRES_MAX_OPEN_CONNS"
	EnvPostgresMaxIdleConns = "POSTGRES_MAX_IDLE_CONNS"

	EnvOfferStore         = "OFFER_STORE"
	EnvRedisAddr          = "REDIS_ADDR"
	EnvRedisPassword      = "REDIS_PASSWORD"
	EnvRedisDB            = "REDIS_DB"
	EnvOfferTTL           = "OFFER_TTL"
	EnvOfferSweepSchedule = "OFFER_SWEEP_SCHEDULE"

	EnvSlotLockTTL     = "SLOT_LOCK_TTL"
	EnvSlotLockRetries = "SLOT_LOCK_RETRIES"
	EnvSlotLockBackoff = "SLOT_LOCK_BACKOFF"

	EnvJWTSecret = "JWT_SECRET"

	EnvNotificationChannels      = "NOTIFICATION_CHANNELS"
	EnvSendGridAPIKey            = "SENDGRID_API_KEY"
	EnvSendGridFromEmail         = "SENDGRID_FROM_EMAIL"
	EnvSendGridFromName          = "SENDGRID_FROM_NAME"
	EnvKafkaNotificationTopic    = "KAFKA_NOTIFICATION_TOPIC"
	EnvKafkaNotificationDLQTopic = "KAFKA_NOTIFICATION_DLQ_TOPIC"
	EnvKafkaNotificationGroup    = "KAFKA_NOTIFICATION_GROUP"

	EnvRateLimitRPS   = "RATE_LIMIT_RPS"
	EnvRateLimitBurst = "RATE_LIMIT_BURST"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"
)
