package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/quangtb/swap-engine/internal/api/handler"
	"github.com/quangtb/swap-engine/internal/api/router"
	"github.com/quangtb/swap-engine/internal/bus"
	"github.com/quangtb/swap-engine/internal/config"
	"github.com/quangtb/swap-engine/internal/pipeline"
	"github.com/quangtb/swap-engine/internal/provider"
	"github.com/quangtb/swap-engine/internal/scheduler"
	"github.com/quangtb/swap-engine/internal/store"
	"github.com/quangtb/swap-engine/shared/logger"
	"github.com/quangtb/swap-engine/shared/postgresql"
	"github.com/quangtb/swap-engine/shared/redisclient"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("SWAP_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/swap-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting swap service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize order store
	orders, dbClient, err := initStore(cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize order store: %w", err)
	}
	if dbClient != nil {
		defer dbClient.Close()
	}

	// Initialize notification bus
	eventBus, redisClient, err := initBus(cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notification bus: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize execution provider and pipeline
	dexRouter := provider.NewMockDexRouter()
	executor := pipeline.NewExecutor(orders, dexRouter, eventBus, appLogger.Logger)

	// Initialize scheduler
	sched := scheduler.New(&scheduler.Config{
		Logger:             appLogger.Logger,
		Handler:            executor,
		OnExhausted:        executor.HandleExhausted,
		Concurrency:        cfg.Scheduler.Concurrency,
		MaxAttempts:        cfg.Scheduler.MaxAttempts,
		BaseDelay:          cfg.Scheduler.BaseDelay,
		RateLimit:          cfg.Scheduler.RateLimit,
		RateWindow:         cfg.Scheduler.RateWindow,
		QueueSize:          cfg.Scheduler.QueueSize,
		CompletedRetention: cfg.Scheduler.CompletedRetention,
		CompletedMaxAge:    cfg.Scheduler.CompletedMaxAge,
		FailedRetention:    cfg.Scheduler.FailedRetention,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.Start(ctx)

	// Initialize router
	r := initRouter(cfg.App.Environment, appLogger.Logger, orders, eventBus, sched)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Swap service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
	}

	// Stop scheduler after the server stops accepting orders; in-flight
	// jobs run to their natural outcome.
	cancel()

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Scheduler stopped gracefully")
	case <-time.After(cfg.Server.ShutdownTimeout):
		appLogger.Warn("Scheduler shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Swap service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initStore builds the configured order store backend
func initStore(cfg *config.Config, logger *slog.Logger) (store.OrderStore, *postgresql.Client, error) {
	if cfg.Storage.Kind == config.StorageMemory {
		logger.Info("Using in-memory order store")
		return store.NewMemoryStore(), nil, nil
	}

	dbClient, err := postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	return store.NewPostgresStore(dbClient.GetDB(), logger), dbClient, nil
}

// initBus builds the configured notification bus backend
func initBus(cfg *config.Config, logger *slog.Logger) (bus.Bus, *redisclient.Client, error) {
	if cfg.Bus.Kind == config.BusMemory {
		logger.Info("Using in-process notification bus")
		return bus.NewMemoryBus(logger), nil, nil
	}

	redisClient, err := redisclient.NewClient(&redisclient.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	return bus.NewRedisBus(redisClient.GetClient(), logger), redisClient, nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, logger *slog.Logger, orders store.OrderStore, eventBus bus.Bus, sched *scheduler.Scheduler) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(&handler.Dependencies{
		Logger: logger,
		Store:  orders,
		Bus:    eventBus,
		Queue:  sched,
	})
}
