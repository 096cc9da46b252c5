package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	cashdayapp "github.com/caixaops/backend/internal/application/cashday"
	identityapp "github.com/caixaops/backend/internal/application/identity"
	tenancyapp "github.com/caixaops/backend/internal/application/tenancy"
	"github.com/caixaops/backend/internal/domain/cashday"
	"github.com/caixaops/backend/internal/infrastructure/auth"
	"github.com/caixaops/backend/internal/infrastructure/config"
	"github.com/caixaops/backend/internal/infrastructure/event"
	"github.com/caixaops/backend/internal/infrastructure/logger"
	"github.com/caixaops/backend/internal/infrastructure/persistence"
	"github.com/caixaops/backend/internal/infrastructure/persistence/tenant"
	"github.com/caixaops/backend/internal/infrastructure/scheduler"
	"github.com/caixaops/backend/internal/infrastructure/telemetry"
	"github.com/caixaops/backend/internal/interfaces/http/handler"
	"github.com/caixaops/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting CaixaOps Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	tenant.EnableGuards(db.DB)
	log.Info("Database connected")

	// Tracing
	ctx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry.Enabled, log); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}

	// Redis backs the token blacklist and the projection leader lock
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	cancelPing()
	log.Info("Redis connected")

	// Repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	unitRepo := persistence.NewGormUnitRepository(db.DB)
	closingRepo := persistence.NewGormClosingRepository(db.DB)
	entryRepo := persistence.NewGormRevenueEntryRepository(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB)

	// Domain events
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewLoggingEventHandler(log))

	// Application services
	signer := cashday.NewSigner(cfg.Integrity.SigningKey)
	jwtService := auth.NewJWTService(cfg.JWT)
	blacklist := auth.NewRedisTokenBlacklist(redisClient)

	closingService := cashdayapp.NewClosingService(uow, closingRepo, entryRepo, unitRepo, signer, eventBus, log)
	unitService := cashdayapp.NewUnitService(unitRepo, log)
	projectionService := cashdayapp.NewProjectionService(unitRepo, entryRepo, tenantRepo, log)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, log)
	userService := identityapp.NewUserService(userRepo, log)
	tenantService := tenancyapp.NewTenantService(tenantRepo, eventBus, log)

	// Daily projection job with a Redis leader lock across instances
	if cfg.Projection.Enabled {
		trigger := scheduler.NewProjectionTrigger(scheduler.ProjectionTriggerConfig{
			DailyRunHour:  cfg.Projection.DailyRunHour,
			CheckInterval: cfg.Projection.CheckInterval,
			LockTTL:       cfg.Projection.LockTTL,
		}, projectionService, redislock.New(redisClient), log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start projection trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := trigger.Stop(stopCtx); err != nil {
				log.Error("Error stopping projection trigger", zap.Error(err))
			}
		}()
	}

	// HTTP layer
	engine, err := router.New(router.Dependencies{
		Config:         cfg,
		Logger:         log,
		JWTService:     jwtService,
		Blacklist:      blacklist,
		AuthHandler:    handler.NewAuthHandler(authService),
		SystemHandler:  handler.NewSystemHandler(db),
		ClosingHandler: handler.NewClosingHandler(closingService),
		UnitHandler:    handler.NewUnitHandler(unitService),
		TenantHandler:  handler.NewTenantHandler(tenantService),
		UserHandler:    handler.NewUserHandler(userService),
	})
	if err != nil {
		log.Fatal("Failed to assemble router", zap.Error(err))
	}

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced server shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
