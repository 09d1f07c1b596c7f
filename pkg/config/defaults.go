package config

import "time"

const (
	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultClinicAPIURL     = "http://localhost:8081"
	DefaultClinicAPITimeout = 10 * time.Second

	DefaultReferenceCacheTTL   = 5 * time.Minute
	DefaultReservationCacheTTL = 1 * time.Minute

	DefaultOperatingStart  = "08:00"
	DefaultOperatingEnd    = "17:00"
	DefaultSlotGranularity = 30 * time.Minute
	DefaultClinicTimeZone  = "Asia/Jakarta"

	DefaultDemoSeed = 42

	DefaultLockTTL      = 15 * time.Second
	DefaultCacheBackend = CacheBackendMemory

	DefaultMongoDatabaseName = "klinik"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultKafkaLifecycleTopic = "reservation-lifecycle"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 35 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)
