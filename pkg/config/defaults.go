package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "stayd"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultListingServiceURL = "http://localhost:8081"

	DefaultRateLimitRequests = 20
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// A created intent holds its dates for LockDuration. Extension is only
	// allowed inside the final ExtendWindow of the lease, at most
	// MaxExtensions times, each adding at most MaxExtensionMinutes.
	DefaultLockDuration        = 10 * time.Minute
	DefaultExtendWindow        = 3 * time.Minute
	DefaultMaxExtensions       = 3
	DefaultMaxExtensionMinutes = 10

	DefaultSweepSchedule   = "@every 1m"
	DefaultSweepBatchSize  = 100
	DefaultRetentionWindow = 720 * time.Hour // 30 days of terminal intents kept for audit
)
