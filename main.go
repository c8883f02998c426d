// Package main provides the entry point for the Victory Cadets admissions voice agent
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/victorycadets/admissions-agent/app/handlers"
	"github.com/victorycadets/admissions-agent/app/logging"
	"github.com/victorycadets/admissions-agent/app/router"
	"github.com/victorycadets/admissions-agent/app/scheduler"
	"github.com/victorycadets/admissions-agent/app/services"
	businessflow "github.com/victorycadets/admissions-agent/business_flow"
	"github.com/victorycadets/admissions-agent/config"
	"github.com/victorycadets/admissions-agent/models"
	"github.com/victorycadets/admissions-agent/repository"
	"github.com/victorycadets/admissions-agent/utils"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Logging, cfg.Deployment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting admissions agent",
		zap.String("version", cfg.Deployment.Version),
		zap.String("commit", cfg.Deployment.CommitHash))

	app, err := initializeApplication(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-sigChan
	logger.Info("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// initializeDatabase opens the configured store. It returns nil when no store is configured,
// which puts the voice webhooks into offline mode.
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	if !cfg.Enabled() {
		logger.Warn("No database configured; webhooks will answer with the offline message")
		return nil, nil
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return utils.UTCNow()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(models.AllModels()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	logger.Info("Database connection established",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connection established", zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication wires repositories, flows, handlers and background jobs
func initializeApplication(cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	var guard businessflow.DeliveryGuard
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval, logger))
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })

		ttl := cfg.Voice.DeliveryGuardTTL
		if ttl <= 0 {
			ttl = utils.DefaultDeliveryGuardTTL
		}
		guard = businessflow.NewRedisDeliveryGuard(rc, cfg.Cache.RedisPrefix, ttl)
	}

	// Repositories
	leadRepo := repository.NewLeadRepository(db)
	scriptRepo := repository.NewAgentScriptRepository(db)
	callRepo := repository.NewCallRecordRepository(db)

	// Services
	telephony := services.NewTelephonyClient(cfg.Twilio)

	// Business flows
	classifier := businessflow.NewIntentClassifier(cfg.Voice.AffirmWords, cfg.Voice.DeclineWords)
	engine := businessflow.NewDialogueEngine(businessflow.EngineConfig{
		RoutingNumber:      cfg.Voice.RoutingNumber,
		MaxObjectionRounds: cfg.Voice.MaxObjectionRounds,
	}, classifier)

	sessionFlow := businessflow.NewCallSessionFlow(leadRepo, scriptRepo, callRepo, db, engine, guard, cfg.Voice, logger)
	statusFlow := businessflow.NewCallStatusFlow(leadRepo, callRepo, db, logger)
	initiatorFlow := businessflow.NewCallInitiatorFlow(leadRepo, scriptRepo, callRepo, db, telephony, cfg.Voice, logger)
	ledgerFlow := businessflow.NewCallLedgerFlow(leadRepo, callRepo, db, logger)
	scriptFlow := businessflow.NewAgentScriptFlow(scriptRepo, db)

	// Handlers
	h := router.Handlers{
		Voice:  handlers.NewVoiceHandler(sessionFlow, statusFlow, cfg.Voice.WebhookTimeout, logger),
		Call:   handlers.NewCallHandler(initiatorFlow, ledgerFlow, logger),
		Script: handlers.NewAgentScriptHandler(scriptFlow, logger),
		Health: handlers.NewHealthHandler(db, rc, cfg.Deployment.Version),
	}

	if cfg.Scheduler.PendingSweepEnabled && db != nil {
		sweeper := scheduler.NewPendingCallSweeper(ledgerFlow, cfg.Scheduler.PendingSweepInterval, cfg.Scheduler.PendingMaxAge, logger)
		if err := sweeper.Start(); err != nil {
			return nil, err
		}
		stopFuncs = append(stopFuncs, sweeper.Stop)
	}

	return &Application{
		router:    router.NewFiberRouter(cfg.Server, cfg.Metrics, h, logger),
		stopFuncs: stopFuncs,
	}, nil
}
