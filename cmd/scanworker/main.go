package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/adierro/courtscan/internal/adapters/mapbox"
	natsadapter "github.com/adierro/courtscan/internal/adapters/nats"
	"github.com/adierro/courtscan/internal/adapters/postgres"
	"github.com/adierro/courtscan/internal/adapters/roboflow"
	"github.com/adierro/courtscan/internal/core/ports"
	"github.com/adierro/courtscan/internal/core/usecases"
	"github.com/adierro/courtscan/internal/pkg/config"
	"github.com/adierro/courtscan/internal/pkg/logging"
	"github.com/adierro/courtscan/internal/workflows"
)

func main() {
	cfg, err := config.Load("courtscan-scanworker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	store := postgres.NewStore(db)
	repos := store.Repos()

	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, verified events will not publish", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	tileClient := mapbox.NewTileClient(cfg.Mapbox.Token)
	geocoder := mapbox.NewGeocoder(cfg.Mapbox.Token)
	inference := roboflow.New(cfg.Roboflow.APIKey, cfg.Roboflow.Model, cfg.Roboflow.ModelVersion)

	dedup := usecases.NewDedupService(store)
	scanSvc := usecases.NewScanService(store, tileClient, inference, geocoder, dedup, slog.Default()).
		WithConcurrency(cfg.Scan.Concurrency)
	verifier := usecases.NewVerificationService(store, publisher, slog.Default()).
		WithThresholds(cfg.Verification.MinFeedbackCount, cfg.Verification.MinPositivePercentage)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.ScanWorkflow)
	w.RegisterActivity(&workflows.ScanActivities{
		Scans:    scanSvc,
		Verifier: verifier,
		Courts:   repos.Courts,
	})

	log.Println("scan worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
