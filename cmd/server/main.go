package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bcnelson/salon-crm/internal/api"
	"github.com/bcnelson/salon-crm/internal/cache"
	"github.com/bcnelson/salon-crm/internal/config"
	"github.com/bcnelson/salon-crm/internal/logging"
	"github.com/bcnelson/salon-crm/internal/metrics"
	"github.com/bcnelson/salon-crm/internal/notify"
	"github.com/bcnelson/salon-crm/internal/service"
	"github.com/bcnelson/salon-crm/internal/storage/sql"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, "salon-crm")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Create data directory if needed (for SQLite)
	if cfg.Database.Driver == "sqlite3" {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				logger.Fatal("Failed to create data directory", zap.Error(err))
			}
		}
	}

	// Initialize storage
	store, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	var overviewCache cache.OverviewCache = cache.Noop{}
	if cfg.Cache.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		cancel()
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer client.Close()
		overviewCache = cache.NewRedis(client, cfg.Cache.OverviewTTL)
		logger.Info("Overview cache enabled", zap.String("redis_addr", cfg.Cache.RedisAddr))
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.WebhookTimeout, logger)
	}

	m := metrics.New()

	deps := service.Deps{
		Store:    store,
		Cache:    overviewCache,
		Notifier: notifier,
		Metrics:  m,
		Logger:   logger,
	}

	opts := api.Options{
		Store:    store,
		Clients:  service.NewClientService(deps),
		Tags:     service.NewTagService(deps),
		Logger:   logger,
		AdminKey: cfg.Auth.AdminAPIKey,
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = m
	}
	if cfg.Auth.AdminAPIKey == "" {
		logger.Warn("ADMIN_API_KEY is not set, organization provisioning is disabled")
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(opts),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("Starting salon CRM", zap.String("addr", cfg.Server.Addr()))

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
