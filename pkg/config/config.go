package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"
	_ "time/tzdata"

	"klinik/pkg/client"
	"klinik/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	ClinicAPIURL     string
	ClinicAPIToken   string
	ClinicAPITimeout time.Duration
	OrganizationID   string

	ReferenceCacheTTL   time.Duration
	ReservationCacheTTL time.Duration

	OperatingStart  string
	OperatingEnd    string
	SlotGranularity time.Duration
	ClinicTimeZone  string
	Location        *time.Location

	DemoMode bool
	DemoSeed int

	RedisURL     string
	LockTTL      time.Duration
	CacheBackend string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	KafkaEnabled        bool
	KafkaLifecycleTopic string
	KafkaDLQTopic       string

	WhatsAppAppSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the environment (and a .env file when present), validates the
// result and exits on invalid configuration.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnvStr(EnvPort, DefaultPort),

		ClinicAPIURL:     getEnvStr(EnvClinicAPIURL, DefaultClinicAPIURL),
		ClinicAPIToken:   getEnvStr(EnvClinicAPIToken, ""),
		ClinicAPITimeout: getEnvDuration(EnvClinicAPITimeout, DefaultClinicAPITimeout),
		OrganizationID:   getEnvStr(EnvOrganizationID, ""),

		ReferenceCacheTTL:   getEnvDuration(EnvReferenceCacheTTL, DefaultReferenceCacheTTL),
		ReservationCacheTTL: getEnvDuration(EnvReservationCacheTTL, DefaultReservationCacheTTL),

		OperatingStart:  getEnvStr(EnvOperatingStart, DefaultOperatingStart),
		OperatingEnd:    getEnvStr(EnvOperatingEnd, DefaultOperatingEnd),
		SlotGranularity: getEnvDuration(EnvSlotGranularity, DefaultSlotGranularity),
		ClinicTimeZone:  getEnvStr(EnvClinicTimeZone, DefaultClinicTimeZone),

		DemoMode: getEnvBool(EnvDemoMode, false),
		DemoSeed: getEnvNum(EnvDemoSeed, DefaultDemoSeed),

		RedisURL:     getEnvStr(EnvRedisURL, ""),
		LockTTL:      getEnvDuration(EnvLockTTL, DefaultLockTTL),
		CacheBackend: getEnvStr(EnvCacheBackend, DefaultCacheBackend),

		MongoURI:          getEnvStr(EnvMongoURI, ""),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		KafkaEnabled:        getEnvBool(EnvKafkaEnabled, false),
		KafkaLifecycleTopic: getEnvStr(EnvKafkaLifecycleTopic, DefaultKafkaLifecycleTopic),
		KafkaDLQTopic:       getEnvStr(EnvKafkaDLQTopic, ""),

		WhatsAppAppSecret: getEnvStr(EnvWhatsAppAppSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisURL)
}

var clockRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if !cfg.DemoMode {
		if u, err := url.Parse(cfg.ClinicAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("ClinicAPIURL must be an absolute http(s) URL, got: %s", cfg.ClinicAPIURL))
		}
	}
	if cfg.ClinicAPITimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ClinicAPITimeout must be positive, got: %s", cfg.ClinicAPITimeout))
	}

	if cfg.ReferenceCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("ReferenceCacheTTL must be positive, got: %s", cfg.ReferenceCacheTTL))
	}
	if cfg.ReservationCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("ReservationCacheTTL must be positive, got: %s", cfg.ReservationCacheTTL))
	}

	openOK := clockRegex.MatchString(cfg.OperatingStart)
	closeOK := clockRegex.MatchString(cfg.OperatingEnd)
	if !openOK {
		errors = append(errors, fmt.Sprintf("OperatingStart must be in HH:MM format (00:00-23:59), got: %s", cfg.OperatingStart))
	}
	if !closeOK {
		errors = append(errors, fmt.Sprintf("OperatingEnd must be in HH:MM format (00:00-23:59), got: %s", cfg.OperatingEnd))
	}
	if openOK && closeOK && cfg.OperatingStart >= cfg.OperatingEnd {
		errors = append(errors, fmt.Sprintf("OperatingStart (%s) must be before OperatingEnd (%s)", cfg.OperatingStart, cfg.OperatingEnd))
	}
	if cfg.SlotGranularity < time.Minute {
		errors = append(errors, fmt.Sprintf("SlotGranularity must be at least 1m, got: %s", cfg.SlotGranularity))
	}

	loc, err := time.LoadLocation(cfg.ClinicTimeZone)
	if err != nil {
		errors = append(errors, fmt.Sprintf("ClinicTimeZone must be an IANA zone, got: %s", cfg.ClinicTimeZone))
	} else {
		cfg.Location = loc
	}

	if cfg.CacheBackend != CacheBackendMemory && cfg.CacheBackend != CacheBackendRedis {
		errors = append(errors, fmt.Sprintf("CacheBackend must be %q or %q, got: %s", CacheBackendMemory, CacheBackendRedis, cfg.CacheBackend))
	}
	if cfg.CacheBackend == CacheBackendRedis && cfg.RedisURL == "" {
		errors = append(errors, "RedisURL is required when CacheBackend is redis")
	}
	if cfg.RedisURL != "" && !regexp.MustCompile(`^rediss?://`).MatchString(cfg.RedisURL) {
		errors = append(errors, fmt.Sprintf("RedisURL must start with 'redis://' or 'rediss://', got: %s", redactURL(cfg.RedisURL)))
	}
	if cfg.LockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("LockTTL must be positive, got: %s", cfg.LockTTL))
	}

	if cfg.MongoURI != "" && !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURL(cfg.MongoURI)))
	}
	if cfg.MongoURI != "" && cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if cfg.KafkaEnabled && cfg.KafkaLifecycleTopic == "" {
		errors = append(errors, "KafkaLifecycleTopic cannot be empty when Kafka is enabled")
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= cfg.ClinicAPITimeout {
		errors = append(errors, fmt.Sprintf("RequestTimeout (%s) must exceed ClinicAPITimeout (%s)", cfg.RequestTimeout, cfg.ClinicAPITimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
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
		"clinic_api_url", cfg.ClinicAPIURL,
		"clinic_api_token_set", cfg.ClinicAPIToken != "",
		"clinic_api_timeout", cfg.ClinicAPITimeout,
		"organization_id", cfg.OrganizationID,
		"reference_cache_ttl", cfg.ReferenceCacheTTL,
		"reservation_cache_ttl", cfg.ReservationCacheTTL,
		"operating_start", cfg.OperatingStart,
		"operating_end", cfg.OperatingEnd,
		"slot_granularity", cfg.SlotGranularity,
		"clinic_timezone", cfg.ClinicTimeZone,
		"demo_mode", cfg.DemoMode,
		"redis_url", redactURL(cfg.RedisURL),
		"cache_backend", cfg.CacheBackend,
		"lock_ttl", cfg.LockTTL,
		"mongo_uri", redactURL(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"kafka_enabled", cfg.KafkaEnabled,
		"kafka_lifecycle_topic", cfg.KafkaLifecycleTopic,
		"whatsapp_secret_set", cfg.WhatsAppAppSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

var credentialRegex = regexp.MustCompile(`(^[a-z+]+://)[^:@/]*:[^@]+@`)

func redactURL(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}
