package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/adierro/courtscan/internal/adapters/http"
	"github.com/adierro/courtscan/internal/adapters/mapbox"
	natsadapter "github.com/adierro/courtscan/internal/adapters/nats"
	"github.com/adierro/courtscan/internal/adapters/postgres"
	"github.com/adierro/courtscan/internal/adapters/roboflow"
	"github.com/adierro/courtscan/internal/adapters/valkey"
	"github.com/adierro/courtscan/internal/core/ports"
	"github.com/adierro/courtscan/internal/core/usecases"
	"github.com/adierro/courtscan/internal/pkg/compositor"
	"github.com/adierro/courtscan/internal/pkg/config"
	"github.com/adierro/courtscan/internal/pkg/logging"
	"github.com/adierro/courtscan/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("courtscan-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	store := postgres.NewStore(db)
	repos := store.Repos()

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, verification will run inline", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// External providers
	tileClient := mapbox.NewTileClient(cfg.Mapbox.Token)
	geocoder := mapbox.NewGeocoder(cfg.Mapbox.Token)
	inference := roboflow.New(cfg.Roboflow.APIKey, cfg.Roboflow.Model, cfg.Roboflow.ModelVersion)

	// Use cases
	verifier := usecases.NewVerificationService(store, publisher, slog.Default()).
		WithThresholds(cfg.Verification.MinFeedbackCount, cfg.Verification.MinPositivePercentage)
	dedup := usecases.NewDedupService(store)
	courtSvc := usecases.NewCourtService(repos.Courts, cacheSvc)
	feedbackSvc := usecases.NewFeedbackService(store, publisher, verifier, slog.Default())
	scanSvc := usecases.NewScanService(store, tileClient, inference, geocoder, dedup, slog.Default()).
		WithConcurrency(cfg.Scan.Concurrency)

	deps := &http.Dependencies{
		Courts:     courtSvc,
		Feedback:   feedbackSvc,
		Scans:      scanSvc,
		Compositor: compositor.New(tileClient, slog.Default()),
		NATS:       natsConn,
		DB:         db,
		Cache:      cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "CourtScan API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.courtscan.app",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
