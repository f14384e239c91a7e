package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/core/ports"
)

// FeedbackStats summarizes a user's review progress.
type FeedbackStats struct {
	UserSubmissions int `json:"user_submissions"`
	TotalDetections int `json:"total_detections"`
}

// FeedbackService accepts crowd feedback on detections and hands the
// resulting verification work to the broker, with an inline fallback when
// no broker is wired.
type FeedbackService struct {
	uow       ports.UnitOfWork
	publisher ports.EventPublisher
	verifier  *VerificationService
	logger    *slog.Logger
}

func NewFeedbackService(uow ports.UnitOfWork, publisher ports.EventPublisher, verifier *VerificationService, logger *slog.Logger) *FeedbackService {
	return &FeedbackService{uow: uow, publisher: publisher, verifier: verifier, logger: logger}
}

// Submit records one user's verdict on one detection. A repeat submission
// for the same (user, detection) pair is a no-op and reports created=false.
func (s *FeedbackService) Submit(ctx context.Context, userID, detectionID string, response domain.FeedbackResponse) (*domain.FeedbackSubmission, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if !domain.ValidResponse(response) {
		return nil, false, fmt.Errorf("%w: response %q", domain.ErrValidation, response)
	}

	submission := &domain.FeedbackSubmission{
		UserID:      userID,
		DetectionID: detectionID,
		Response:    response,
	}

	var created bool
	err := s.uow.Do(ctx, func(ctx context.Context, tx ports.Repositories) error {
		detection, err := tx.Detections.GetByID(ctx, detectionID)
		if err != nil {
			return fmt.Errorf("get detection: %w", err)
		}
		if detection == nil {
			return fmt.Errorf("%w: detection %s", domain.ErrNotFound, detectionID)
		}
		submission.TileID = detection.TileID

		created, err = tx.Feedback.Insert(ctx, submission)
		if err != nil {
			return fmt.Errorf("insert feedback: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !created {
		return submission, false, nil
	}

	s.dispatch(ctx, submission)
	return submission, true, nil
}

// dispatch routes a new submission to the verification pipeline. Broker
// first; inline recompute when the broker is absent or down.
func (s *FeedbackService) dispatch(ctx context.Context, f *domain.FeedbackSubmission) {
	if s.publisher != nil {
		err := s.publisher.PublishFeedback(ctx, f)
		if err == nil {
			return
		}
		s.logger.Warn("publish feedback failed, recomputing inline",
			slog.String("detection_id", f.DetectionID), slog.Any("error", err))
	}
	if s.verifier == nil {
		return
	}
	if _, err := s.verifier.Recompute(ctx, f.DetectionID); err != nil {
		s.logger.Error("inline verification recompute failed",
			slog.String("detection_id", f.DetectionID), slog.Any("error", err))
	}
}

// Stats returns the user's submission count against the reviewable total.
func (s *FeedbackService) Stats(ctx context.Context, userID string) (*FeedbackStats, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	var stats FeedbackStats
	err := s.uow.Do(ctx, func(ctx context.Context, tx ports.Repositories) error {
		n, err := tx.Feedback.CountByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("count user feedback: %w", err)
		}
		stats.UserSubmissions = n

		total, err := tx.Detections.Count(ctx)
		if err != nil {
			return fmt.Errorf("count detections: %w", err)
		}
		stats.TotalDetections = total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Detection returns one detection by id.
func (s *FeedbackService) Detection(ctx context.Context, id string) (*domain.Detection, error) {
	var d *domain.Detection
	err := s.uow.Do(ctx, func(ctx context.Context, tx ports.Repositories) error {
		var err error
		d, err = tx.Detections.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: detection %s", domain.ErrNotFound, id)
	}
	return d, nil
}

// NextForReview returns the oldest detection the user has not reviewed yet,
// skipping the given ids. Nil means the user has seen everything.
func (s *FeedbackService) NextForReview(ctx context.Context, userID string, skipIDs []string) (*domain.Detection, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	var next *domain.Detection
	err := s.uow.Do(ctx, func(ctx context.Context, tx ports.Repositories) error {
		var err error
		next, err = tx.Detections.NextUnreviewed(ctx, userID, skipIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}
