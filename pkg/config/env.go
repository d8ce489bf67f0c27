package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRedisAddr = "REDIS_ADDR"

	EnvListingServiceURL = "LISTING_SERVICE_URL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvLockDuration        = "LOCK_DURATION"
	EnvExtendWindow        = "EXTEND_WINDOW"
	EnvMaxExtensions       = "MAX_EXTENSIONS"
	EnvMaxExtensionMinutes = "MAX_EXTENSION_MINUTES"

	EnvSweepSchedule   = "SWEEP_SCHEDULE"
	EnvSweepBatchSize  = "SWEEP_BATCH_SIZE"
	EnvRetentionWindow = "RETENTION_WINDOW"
)
