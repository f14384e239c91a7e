package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/core/ports"
)

// Defaults for the crowd-verification rule: a pending court is promoted
// once enough users agree.
const (
	DefaultMinFeedbackCount      = 5
	DefaultMinPositivePercentage = 0.7
)

// VerificationService recomputes a court's verification state from the
// accumulated feedback on its detection.
type VerificationService struct {
	uow       ports.UnitOfWork
	publisher ports.EventPublisher
	logger    *slog.Logger

	minCount    int
	minPositive float64
	now         func() time.Time
}

// NewVerificationService creates a VerificationService with the default
// promotion thresholds. The publisher may be nil; promotions are then not
// announced.
func NewVerificationService(uow ports.UnitOfWork, publisher ports.EventPublisher, logger *slog.Logger) *VerificationService {
	return &VerificationService{
		uow:         uow,
		publisher:   publisher,
		logger:      logger,
		minCount:    DefaultMinFeedbackCount,
		minPositive: DefaultMinPositivePercentage,
		now:         time.Now,
	}
}

// WithThresholds overrides the promotion thresholds.
func (s *VerificationService) WithThresholds(minCount int, minPositive float64) *VerificationService {
	s.minCount = minCount
	s.minPositive = minPositive
	return s
}

// WithClock overrides the clock used to stamp verified-at.
func (s *VerificationService) WithClock(now func() time.Time) *VerificationService {
	s.now = now
	return s
}

// Recompute re-derives the verification state of the court linked to a
// detection. Feedback counters are always rewritten; the status only ever
// moves forward: pending becomes verified when the thresholds are met, and
// verified or rejected courts never change state here. The counter read and
// the court write commit atomically.
func (s *VerificationService) Recompute(ctx context.Context, detectionID string) (*domain.Court, error) {
	var (
		court    *domain.Court
		promoted bool
	)
	err := s.uow.Do(ctx, func(ctx context.Context, tx ports.Repositories) error {
		detection, err := tx.Detections.GetByID(ctx, detectionID)
		if err != nil {
			return fmt.Errorf("get detection: %w", err)
		}
		if detection == nil {
			return fmt.Errorf("%w: detection %s", domain.ErrNotFound, detectionID)
		}
		if detection.CourtID == "" {
			return fmt.Errorf("%w: detection %s has no court", domain.ErrNotFound, detectionID)
		}

		court, err = tx.Courts.GetByID(ctx, detection.CourtID)
		if err != nil {
			return fmt.Errorf("get court: %w", err)
		}
		if court == nil {
			return fmt.Errorf("%w: court %s", domain.ErrNotFound, detection.CourtID)
		}

		counts, err := tx.Feedback.CountsByDetection(ctx, detectionID)
		if err != nil {
			return fmt.Errorf("count feedback: %w", err)
		}

		court.TotalFeedbackCount = counts.Total
		court.PositiveFeedbackCount = counts.Positive

		if court.Status == domain.StatusPending &&
			counts.Total >= s.minCount &&
			counts.PositivePercentage() >= s.minPositive {
			court.Status = domain.StatusVerified
			if court.VerifiedAt == nil {
				at := s.now().UTC()
				court.VerifiedAt = &at
			}
			promoted = true
		}

		return tx.Courts.UpdateVerification(ctx, court)
	})
	if err != nil {
		return nil, err
	}

	if promoted {
		s.logger.Info("court verified",
			slog.String("court_id", court.ID),
			slog.String("class", court.Class),
			slog.Int("total_feedback", court.TotalFeedbackCount),
			slog.Int("positive_feedback", court.PositiveFeedbackCount))
		if s.publisher != nil {
			if err := s.publisher.PublishCourtVerified(ctx, court); err != nil {
				// The state change already committed; losing the event is
				// tolerable, losing the write is not.
				s.logger.Warn("publish court verified failed",
					slog.String("court_id", court.ID), slog.Any("error", err))
			}
		}
	}

	return court, nil
}
