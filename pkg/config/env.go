package config

const (
	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvClinicAPIURL     = "CLINIC_API_URL"
	EnvClinicAPIToken   = "CLINIC_API_TOKEN"
	EnvClinicAPITimeout = "CLINIC_API_TIMEOUT"
	EnvOrganizationID   = "ORGANIZATION_ID"

	EnvReferenceCacheTTL   = "REFERENCE_CACHE_TTL"
	EnvReservationCacheTTL = "RESERVATION_CACHE_TTL"

	EnvOperatingStart  = "OPERATING_START"
	EnvOperatingEnd    = "OPERATING_END"
	EnvSlotGranularity = "SLOT_GRANULARITY"
	EnvClinicTimeZone  = "CLINIC_TIMEZONE"

	EnvDemoMode = "DEMO_MODE"
	EnvDemoSeed = "DEMO_SEED"

	EnvRedisURL     = "REDIS_URL"
	EnvLockTTL      = "SCHEDULING_LOCK_TTL"
	EnvCacheBackend = "CACHE_BACKEND"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvKafkaEnabled        = "KAFKA_ENABLED"
	EnvKafkaLifecycleTopic = "KAFKA_LIFECYCLE_TOPIC"
	EnvKafkaDLQTopic       = "KAFKA_LIFECYCLE_DLQ_TOPIC"

	EnvWhatsAppAppSecret = "WHATSAPP_APP_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
