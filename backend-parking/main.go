package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/di"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/repository"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/worker"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/config"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/database"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/kafka"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/middleware"
	pkgredis "github.com/carlosaltan18/Parkingit4-Data/pkg/redis"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/retry"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Roles checked on the API routes
const (
	roleRegister = "REGISTER"
	roleParking  = "PARKING"
	roleFare     = "FARE"
	roleAudit    = "AUDIT"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Parking Service...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("storage_driver", cfg.Parking.StorageDriver),
	)

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	location, err := cfg.Parking.Location()
	if err != nil {
		appLog.Fatal("Invalid parking timezone", zap.Error(err))
	}

	// Initialize database connection
	var db *database.PostgresDB
	if cfg.Parking.StorageDriver == "postgres" {
		if err := cfg.ValidateDatabase(); err != nil {
			appLog.Fatal("Invalid database configuration", zap.Error(err))
		}
		dbCfg := &database.PostgresConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			MaxConns:        int32(cfg.Database.MaxOpenConns),
			MinConns:        int32(cfg.Database.MaxIdleConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnectTimeout:  5 * time.Second,
			MaxRetries:      3,
			RetryInterval:   time.Second,
			EnableTracing:   cfg.OTel.Enabled,
		}
		db, err = database.NewPostgres(ctx, dbCfg)
		if err != nil {
			appLog.Fatal("Database connection failed", zap.Error(err))
		}
		defer db.Close()

		if err := db.ApplySchema(ctx, repository.Schema); err != nil {
			appLog.Fatal("Failed to apply database schema", zap.Error(err))
		}
		stats := db.Stats()
		appLog.Info("Database connected",
			zap.Int32("max_conns", stats.MaxConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
	} else {
		appLog.Warn("Using in-memory storage, data is lost on restart")
	}

	// Initialize Redis connection. It backs the tariff cache and idempotency keys.
	redisCfg := &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: 500 * time.Millisecond,
	}
	redisClient, err := pkgredis.NewClient(ctx, redisCfg)
	if err != nil {
		appLog.Warn("Redis connection failed, running without tariff cache and idempotency", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLog.Info("Redis connected", zap.String("addr", redisCfg.Addr()))
	}

	// Initialize Kafka producer for the audit relay
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(ctx, &kafka.ProducerConfig{
			Brokers:       cfg.Kafka.Brokers,
			ClientID:      cfg.Kafka.ClientID,
			MaxRetries:    3,
			RetryInterval: time.Second,
		})
		if err != nil {
			appLog.Warn("Kafka connection failed, audit relay disabled", zap.Error(err))
			producer = nil
		} else {
			appLog.Info("Kafka producer connected")
		}
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:                  db,
		Redis:               redisClient,
		Producer:            producer,
		ServiceName:         cfg.App.Name,
		DefaultTariffID:     cfg.Parking.DefaultTariffID,
		AuditMaxFieldLength: cfg.Parking.AuditMaxFieldLength,
		StorageTimeout:      cfg.Parking.StorageTimeout,
		Location:            location,
		TariffCacheTTL:      cfg.Parking.TariffCacheTTL,
		Relay: &worker.AuditRelayConfig{
			PollInterval: cfg.Parking.AuditRelayInterval,
			BatchSize:    cfg.Parking.AuditRelayBatchSize,
			Retry:        retry.DefaultConfig(),
		},
		RelayTopic: cfg.Parking.AuditRelayTopic,
		Logger:     appLog,
	})

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	if container.AuditRelay != nil {
		if err := container.AuditRelay.Start(relayCtx); err != nil {
			appLog.Fatal("Failed to start audit relay", zap.Error(err))
		}
	}

	// Setup Gin
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		telemetry.TracingMiddleware(cfg.OTel.ServiceName),
		middleware.Logger(appLog),
	)

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// Write operations replay under X-Idempotency-Key when Redis is available
	idempotent := func(c *gin.Context) { c.Next() }
	if redisClient != nil {
		idempotent = middleware.IdempotencyMiddleware(middleware.DefaultIdempotencyConfig(redisClient.Client()))
	}

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth(&middleware.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Disabled: cfg.JWT.Disabled,
	}))
	{
		v1.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"version": cfg.App.Version,
				"service": cfg.App.Name,
			})
		})

		sessions := v1.Group("/sessions")
		{
			// Gate operations
			sessions.POST("/entry", middleware.RequireRole(roleRegister), idempotent, container.SessionHandler.OpenSession)
			sessions.POST("/exit", middleware.RequireRole(roleRegister), idempotent, container.SessionHandler.CloseSession)

			// Administration and reports
			admin := sessions.Group("", middleware.RequireRole(roleParking))
			admin.GET("", container.SessionHandler.ListSessions)
			admin.POST("", idempotent, container.SessionHandler.CreateSession)
			admin.GET("/report/:facilityId", container.SessionHandler.Report)
			admin.GET("/report/:facilityId/export", container.SessionHandler.ExportReport)
			admin.GET("/:id", container.SessionHandler.GetSession)
			admin.PUT("/:id", idempotent, container.SessionHandler.UpdateSession)
			admin.DELETE("/:id", idempotent, container.SessionHandler.DeleteSession)
		}

		tariffs := v1.Group("/tariffs", middleware.RequireRole(roleFare))
		{
			tariffs.POST("", idempotent, container.TariffHandler.CreateTariff)
			tariffs.GET("", container.TariffHandler.ListTariffs)
			tariffs.GET("/:id", container.TariffHandler.GetTariff)
			tariffs.PUT("/:id", idempotent, container.TariffHandler.UpdateTariff)
			tariffs.DELETE("/:id", idempotent, container.TariffHandler.DeleteTariff)
		}

		facilities := v1.Group("/facilities", middleware.RequireRole(roleParking))
		{
			facilities.POST("", idempotent, container.FacilityHandler.CreateFacility)
			facilities.GET("", container.FacilityHandler.ListFacilities)
			facilities.GET("/:id", container.FacilityHandler.GetFacility)
			facilities.PUT("/:id", idempotent, container.FacilityHandler.UpdateFacility)
			facilities.DELETE("/:id", idempotent, container.FacilityHandler.DeleteFacility)
		}

		audits := v1.Group("/audits", middleware.RequireRole(roleAudit))
		{
			audits.GET("", container.AuditHandler.ListAudits)
			audits.GET("/range", container.AuditHandler.ListAuditsByRange)
			audits.GET("/:id", container.AuditHandler.GetAudit)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Start server in goroutine
	go func() {
		appLog.Info("Parking Service listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	if container.AuditRelay != nil {
		container.AuditRelay.Stop()
	}
	if err := container.AuditPublisher.Close(); err != nil {
		appLog.Error("Failed to close audit publisher", zap.Error(err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Failed to flush traces", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}
