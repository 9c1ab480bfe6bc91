package di

import (
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/handler"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/repository"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/service"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/worker"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/database"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/kafka"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/redis"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/retry"
	"go.uber.org/zap"
)

// Container holds all dependencies for the parking service
type Container struct {
	// Infrastructure
	DB       *database.PostgresDB
	Redis    *redis.Client
	Producer *kafka.Producer

	// Repositories
	Transactor   repository.Transactor
	FacilityRepo repository.FacilityRepository
	TariffRepo   repository.TariffRepository
	SessionRepo  repository.SessionRepository
	AuditRepo    repository.AuditRepository
	RelayCursor  repository.CursorStore

	// Services
	AuditRecorder   service.AuditRecorder
	TariffSelector  service.TariffSelector
	SessionService  service.SessionService
	TariffService   service.TariffService
	FacilityService service.FacilityService

	// Publishers
	AuditPublisher service.AuditPublisher

	// Workers, nil when Kafka is disabled
	AuditRelay *worker.AuditRelay

	// Handlers
	HealthHandler   *handler.HealthHandler
	SessionHandler  *handler.SessionHandler
	TariffHandler   *handler.TariffHandler
	FacilityHandler *handler.FacilityHandler
	AuditHandler    *handler.AuditHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	// DB selects the PostgreSQL driver. Nil selects the in-memory driver.
	DB *database.PostgresDB
	// Redis enables the tariff cache and the persistent relay cursor
	Redis *redis.Client
	// Producer enables the audit relay
	Producer *kafka.Producer

	ServiceName         string
	DefaultTariffID     int64
	AuditMaxFieldLength int
	StorageTimeout      time.Duration
	Location            *time.Location
	TariffCacheTTL      time.Duration
	Relay               *worker.AuditRelayConfig
	RelayTopic          string

	Logger *logger.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	c := &Container{
		DB:       cfg.DB,
		Redis:    cfg.Redis,
		Producer: cfg.Producer,
	}

	// Initialize repositories
	var cursorStore *repository.MemoryStore
	if cfg.DB != nil {
		pool := cfg.DB.Pool()
		c.Transactor = repository.NewPostgresTransactor(pool)
		c.FacilityRepo = repository.NewPostgresFacilityRepository(pool)
		c.TariffRepo = repository.NewPostgresTariffRepository(pool)
		c.SessionRepo = repository.NewPostgresSessionRepository(pool)
		c.AuditRepo = repository.NewPostgresAuditRepository(pool)
		cursorStore = repository.NewMemoryStore()
	} else {
		store := repository.NewMemoryStore()
		c.Transactor = store
		c.FacilityRepo = repository.NewMemoryFacilityRepository(store)
		c.TariffRepo = repository.NewMemoryTariffRepository(store)
		c.SessionRepo = repository.NewMemorySessionRepository(store)
		c.AuditRepo = repository.NewMemoryAuditRepository(store)
		cursorStore = store
	}

	if cfg.Redis != nil {
		c.TariffRepo = repository.NewCachedTariffRepository(c.TariffRepo, cfg.Redis, cfg.TariffCacheTTL, log)
		c.RelayCursor = repository.NewRedisCursorStore(cfg.Redis, repository.AuditRelayCursorKey)
	} else {
		c.RelayCursor = repository.NewMemoryCursorStore(cursorStore)
	}

	// Initialize services
	c.AuditRecorder = service.NewAuditRecorder(c.AuditRepo, &service.AuditRecorderConfig{
		MaxFieldLength: cfg.AuditMaxFieldLength,
		StorageTimeout: cfg.StorageTimeout,
	}, log)
	c.TariffSelector = service.NewTariffSelector(c.TariffRepo, cfg.DefaultTariffID, log)
	c.SessionService = service.NewSessionService(
		c.Transactor,
		c.SessionRepo,
		c.FacilityRepo,
		c.TariffRepo,
		c.TariffSelector,
		service.NewBillingCalculator(),
		c.AuditRecorder,
		&service.SessionServiceConfig{
			Location:       cfg.Location,
			StorageTimeout: cfg.StorageTimeout,
		},
		log,
	)
	c.TariffService = service.NewTariffService(c.Transactor, c.TariffRepo, c.AuditRecorder, cfg.StorageTimeout, log)
	c.FacilityService = service.NewFacilityService(c.Transactor, c.FacilityRepo, c.AuditRecorder, cfg.StorageTimeout, log)

	// Initialize publishers and workers
	if cfg.Producer != nil {
		if cfg.Redis == nil {
			log.Warn("Audit relay cursor is not persisted, records are republished after a restart")
		}
		c.AuditPublisher = service.NewKafkaAuditPublisher(cfg.Producer, &service.AuditPublisherConfig{
			Topic:       cfg.RelayTopic,
			ServiceName: cfg.ServiceName,
		})
		dlq := retry.NewKafkaDLQPublisher(cfg.Producer, &retry.DLQConfig{
			TopicSuffix: ".dlq",
			Source:      cfg.ServiceName,
		})
		c.AuditRelay = worker.NewAuditRelay(c.AuditRepo, c.RelayCursor, c.AuditPublisher, dlq, cfg.Relay, log)
		log.Info("Audit relay configured", zap.String("topic", c.AuditPublisher.Topic()))
	} else {
		c.AuditPublisher = service.NewNoOpAuditPublisher()
	}

	// Initialize handlers
	var dbCheck, redisCheck handler.HealthChecker
	if cfg.DB != nil {
		dbCheck = cfg.DB
	}
	if cfg.Redis != nil {
		redisCheck = cfg.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(dbCheck, redisCheck)
	c.SessionHandler = handler.NewSessionHandler(c.SessionService)
	c.TariffHandler = handler.NewTariffHandler(c.TariffService)
	c.FacilityHandler = handler.NewFacilityHandler(c.FacilityService)
	c.AuditHandler = handler.NewAuditHandler(c.AuditRecorder)

	return c
}
