package main

import (
	"context"
	"time"

	"klinik/internal/audit"
	"klinik/internal/gateway"
	"klinik/internal/intake"
	"klinik/internal/lifecycle"
	"klinik/internal/mockapi"
	"klinik/internal/reception"
	"klinik/internal/slots"
	"klinik/pkg/app"
	"klinik/pkg/client"
	"klinik/pkg/config"
	"klinik/pkg/kafka"
	kafka_config "klinik/pkg/kafka/config"
	kafka_middleware "klinik/pkg/kafka/middleware"
	"klinik/pkg/middleware"
	"klinik/pkg/model"

	"github.com/google/uuid"
)

const ServiceName = "reception"

// demoDiagnoser answers diagnosis requests locally when no clinic API is
// configured.
type demoDiagnoser struct{}

func (demoDiagnoser) Recommend(_ context.Context, req model.DiagnosisRequest) (*model.DiagnosisResult, error) {
	res := mockapi.Recommend(req)
	return &res, nil
}

type services struct {
	gateway   *gateway.CachingGateway
	handler   *reception.ReservationHandler
	health    *reception.HealthHandler
	store     middleware.IdempotencyStore
	shutdowns []func(ctx context.Context)
}

func main() {
	cfg := config.Load(ServiceName)
	instance := ServiceName + "-" + uuid.NewString()[:8]
	cfg.Log.Info("Starting reception service", "instance", instance)

	svc := initServices(cfg, instance)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(svc.health, svc.handler, svc.store)
	for _, fn := range svc.shutdowns {
		serverApp.OnShutdown(fn)
	}
	serverApp.OnShutdown(func(context.Context) { cfg.GracefulShutdown() })
	serverApp.Run()
}

func initServices(cfg *config.Config, instance string) *services {
	svc := &services{}
	log := cfg.Log

	if cfg.RedisURL != "" {
		cfg.SetRedis()
	}
	if cfg.MongoURI != "" {
		cfg.SetMongo()
	}

	upstream, diagnoser := initUpstream(cfg)

	var cache gateway.Cache
	if cfg.CacheBackend == config.CacheBackendRedis {
		cache = gateway.NewRedisCache(cfg.Client.Redis, "")
	} else {
		mem := gateway.NewMemoryCache(cfg.ReservationCacheTTL)
		cache = mem
		svc.shutdowns = append(svc.shutdowns, func(context.Context) { mem.Stop() })
	}
	svc.gateway = gateway.NewCachingGateway(upstream, cache, gateway.CachingConfig{
		ReferenceTTL:   cfg.ReferenceCacheTTL,
		ReservationTTL: cfg.ReservationCacheTTL,
	}, log)

	resolver, err := slots.NewResolver(slots.Config{
		Open:        cfg.OperatingStart,
		Close:       cfg.OperatingEnd,
		Granularity: cfg.SlotGranularity,
		Location:    cfg.Location,
	})
	if err != nil {
		log.Fatal("Invalid operating hours", "error", err)
	}

	var locker lifecycle.Locker = lifecycle.NewLocalLocker()
	if cfg.Client.Redis != nil {
		locker = lifecycle.NewRedisLocker(cfg.Client.Redis, cfg.LockTTL)
		svc.store = middleware.NewRedisIdempotencyStore(cfg.Client.Redis, cfg.IdempotencyTTL)
		log.Info("Using Redis for scheduling locks and idempotency keys")
	}

	recorders := audit.Multi{}
	var history reception.History
	if cfg.Client.Mongo != nil {
		mongoRecorder := audit.NewMongoRecorder(cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
		ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
		if err := mongoRecorder.EnsureIndexes(ctx); err != nil {
			log.Error("Failed to create audit indexes", "error", err)
		}
		cancel()
		recorders = append(recorders, mongoRecorder)
		history = mongoRecorder
	}

	var announcer intake.Announcer
	if cfg.KafkaEnabled {
		kafkaRecorder := initKafka(cfg, instance, svc)
		recorders = append(recorders, kafkaRecorder)
		announcer = kafkaRecorder
	}

	var recorder audit.Recorder = audit.Nop{}
	if len(recorders) > 0 {
		recorder = audit.Stamped{Instance: instance, Next: recorders}
	}

	manager := lifecycle.NewManager(svc.gateway, resolver, lifecycle.Config{
		OrganizationID: cfg.OrganizationID,
		Locker:         locker,
		Recorder:       recorder,
	}, log)

	svc.handler = reception.NewReservationHandler(reception.Deps{
		Gateway:        svc.gateway,
		Lifecycle:      manager,
		Intake:         intake.NewService(svc.gateway, announcer, log),
		Diagnoser:      diagnoser,
		History:        history,
		OrganizationID: cfg.OrganizationID,
		Location:       cfg.Location,
	}, log)
	svc.health = reception.NewHealthHandler(svc.gateway, cfg.OrganizationID, log)

	log.Info("Reception services initialized",
		"demo_mode", cfg.DemoMode,
		"cache_backend", cfg.CacheBackend,
		"audit_recorders", len(recorders),
	)
	return svc
}

func initUpstream(cfg *config.Config) (gateway.Gateway, reception.Diagnoser) {
	if !cfg.DemoMode {
		return client.NewReservationClient(cfg.ClinicAPIURL, cfg.ClinicAPIToken, cfg.ClinicAPITimeout),
			client.NewDiagnosisClient(cfg.ClinicAPIURL, cfg.ClinicAPIToken, cfg.ClinicAPITimeout)
	}

	fake := gateway.NewFakeGateway(cfg.Location)
	gateway.SeedDemo(fake, gateway.DemoConfig{
		OrganizationID: cfg.OrganizationID,
		Seed:           uint64(cfg.DemoSeed),
		Around:         time.Now().In(cfg.Location),
	})
	cfg.Log.Warn("Demo mode: serving an in-memory clinic backend")
	return fake, demoDiagnoser{}
}

// initKafka wires the lifecycle producer and the cache invalidation consumer.
// Each instance consumes with its own group so every instance sees every
// event.
func initKafka(cfg *config.Config, instance string, svc *services) *audit.KafkaRecorder {
	log := cfg.Log
	kcfg, err := kafka_config.Load()
	if err != nil {
		log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(log)

	metrics := kafka_middleware.NewMetrics()

	producer, err := kafka.NewProducer(kcfg, cfg.KafkaLifecycleTopic, cfg.KafkaDLQTopic, log)
	if err != nil {
		log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(log))
	producer.Use(metrics.ProducerMiddleware())

	groupID := kcfg.ConsumerGroupPrefix + "-" + instance
	consumer, err := kafka.NewConsumer(kcfg, cfg.KafkaLifecycleTopic, groupID, cfg.KafkaDLQTopic,
		audit.InvalidationHandler(instance, svc.gateway, log), log)
	if err != nil {
		log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(log))
	consumer.Use(metrics.ConsumerMiddleware())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error("Kafka consumer stopped", "error", err)
		}
	}()

	svc.shutdowns = append(svc.shutdowns, func(context.Context) {
		cancel()
		if err := consumer.Close(); err != nil {
			log.Error("Failed to close Kafka consumer", "error", err)
		}
		if err := producer.Close(); err != nil {
			log.Error("Failed to close Kafka producer", "error", err)
		}
		log.Info("Kafka traffic", "stats", metrics.Snapshot())
	})

	return audit.NewKafkaRecorder(producer, instance)
}
