package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/adierro/courtscan/internal/adapters/nats"
	"github.com/adierro/courtscan/internal/adapters/postgres"
	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/core/usecases"
	"github.com/adierro/courtscan/internal/pkg/config"
	"github.com/adierro/courtscan/internal/pkg/logging"
	"github.com/adierro/courtscan/internal/pkg/metrics"
)

// The verifier consumes feedback events from the work queue and recomputes
// court verification. At-least-once delivery is fine: recompute is
// idempotent, it derives state from the stored counts every time.
func main() {
	cfg, err := config.Load("courtscan-verifier")
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

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	store := postgres.NewStore(db)

	// Publisher for courts.verified events
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer publisher.Close()

	// Durable consumer on the feedback work queue
	subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer subscriber.Close()

	verifier := usecases.NewVerificationService(store, publisher, slog.Default()).
		WithThresholds(cfg.Verification.MinFeedbackCount, cfg.Verification.MinPositivePercentage)

	err = subscriber.SubscribeFeedback(ctx, func(ctx context.Context, f *domain.FeedbackSubmission) error {
		court, err := verifier.Recompute(ctx, f.DetectionID)
		if err != nil {
			slog.Error("recompute failed",
				slog.String("detection_id", f.DetectionID), slog.Any("error", err))
			return err
		}
		if court.Status == domain.StatusVerified {
			metrics.CourtsVerified.WithLabelValues(court.Class).Inc()
		}
		slog.Info("feedback processed",
			slog.String("detection_id", f.DetectionID),
			slog.String("court_id", court.ID),
			slog.String("status", string(court.Status)),
			slog.Int("total", court.TotalFeedbackCount),
			slog.Int("positive", court.PositiveFeedbackCount))
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("verifier consuming feedback events")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received", "signal", sig.String())
	cancel()
}
