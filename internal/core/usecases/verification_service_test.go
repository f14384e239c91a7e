package usecases_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/core/ports"
	"github.com/adierro/courtscan/internal/core/usecases"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type verificationFixture struct {
	svc       *usecases.VerificationService
	courts    *mockCourtRepo
	published []string
	saved     *domain.Court
}

func newVerificationFixture(t *testing.T, court *domain.Court, counts domain.FeedbackCounts) *verificationFixture {
	t.Helper()
	fx := &verificationFixture{}

	detections := &mockDetectionRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Detection, error) {
			return &domain.Detection{ID: id, CourtID: court.ID}, nil
		},
	}
	fx.courts = &mockCourtRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Court, error) {
			c := *court
			return &c, nil
		},
		updateVerificationFn: func(ctx context.Context, c *domain.Court) error {
			fx.saved = c
			return nil
		},
	}
	feedback := &mockFeedbackRepo{
		countsByDetectionFn: func(ctx context.Context, detectionID string) (domain.FeedbackCounts, error) {
			return counts, nil
		},
	}
	publisher := &mockPublisher{
		publishVerifiedFn: func(ctx context.Context, c *domain.Court) error {
			fx.published = append(fx.published, c.ID)
			return nil
		},
	}

	uow := &mockUOW{repos: ports.Repositories{
		Tiles:      &mockTileRepo{},
		Detections: detections,
		Courts:     fx.courts,
		Feedback:   feedback,
		Scans:      &mockScanRepo{},
	}}
	fx.svc = usecases.NewVerificationService(uow, publisher, discardLogger()).
		WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return fx
}

func TestVerificationService_PromotesAtThreshold(t *testing.T) {
	court := &domain.Court{ID: "court-1", Class: "tennis-court", Status: domain.StatusPending}
	fx := newVerificationFixture(t, court, domain.FeedbackCounts{Total: 5, Positive: 4})

	got, err := fx.svc.Recompute(context.Background(), "det-1")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if got.Status != domain.StatusVerified {
		t.Errorf("Status = %q, want verified", got.Status)
	}
	if got.VerifiedAt == nil || !got.VerifiedAt.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("VerifiedAt = %v, want fixed clock time", got.VerifiedAt)
	}
	if got.TotalFeedbackCount != 5 || got.PositiveFeedbackCount != 4 {
		t.Errorf("counters = %d/%d, want 5/4", got.PositiveFeedbackCount, got.TotalFeedbackCount)
	}
	if len(fx.published) != 1 || fx.published[0] != "court-1" {
		t.Errorf("published = %v, want [court-1]", fx.published)
	}
}

func TestVerificationService_StaysPendingBelowCount(t *testing.T) {
	court := &domain.Court{ID: "court-1", Status: domain.StatusPending}
	fx := newVerificationFixture(t, court, domain.FeedbackCounts{Total: 4, Positive: 4})

	got, err := fx.svc.Recompute(context.Background(), "det-1")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.VerifiedAt != nil {
		t.Errorf("VerifiedAt = %v, want nil", got.VerifiedAt)
	}
	// Counters are still written even without a promotion.
	if fx.saved == nil || fx.saved.TotalFeedbackCount != 4 {
		t.Errorf("saved counters = %+v, want total 4", fx.saved)
	}
	if len(fx.published) != 0 {
		t.Errorf("published = %v, want none", fx.published)
	}
}

func TestVerificationService_StaysPendingBelowShare(t *testing.T) {
	// 4/6 is under the 70% bar.
	court := &domain.Court{ID: "court-1", Status: domain.StatusPending}
	fx := newVerificationFixture(t, court, domain.FeedbackCounts{Total: 6, Positive: 4})

	got, err := fx.svc.Recompute(context.Background(), "det-1")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
}

func TestVerificationService_NeverDemotesVerified(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	court := &domain.Court{ID: "court-1", Status: domain.StatusVerified, VerifiedAt: &at}
	// A wave of negative feedback after verification.
	fx := newVerificationFixture(t, court, domain.FeedbackCounts{Total: 20, Positive: 2})

	got, err := fx.svc.Recompute(context.Background(), "det-1")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if got.Status != domain.StatusVerified {
		t.Errorf("Status = %q, want verified", got.Status)
	}
	if got.VerifiedAt == nil || !got.VerifiedAt.Equal(at) {
		t.Errorf("VerifiedAt = %v, want original %v", got.VerifiedAt, at)
	}
	if got.TotalFeedbackCount != 20 || got.PositiveFeedbackCount != 2 {
		t.Errorf("counters = %d/%d, want 2/20", got.PositiveFeedbackCount, got.TotalFeedbackCount)
	}
}

func TestVerificationService_RejectedUntouched(t *testing.T) {
	court := &domain.Court{ID: "court-1", Status: domain.StatusRejected}
	fx := newVerificationFixture(t, court, domain.FeedbackCounts{Total: 10, Positive: 10})

	got, err := fx.svc.Recompute(context.Background(), "det-1")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if got.Status != domain.StatusRejected {
		t.Errorf("Status = %q, want rejected", got.Status)
	}
	if len(fx.published) != 0 {
		t.Errorf("published = %v, want none", fx.published)
	}
}

func TestVerificationService_UnlinkedDetection(t *testing.T) {
	detections := &mockDetectionRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Detection, error) {
			return &domain.Detection{ID: id}, nil
		},
	}
	uow := &mockUOW{repos: ports.Repositories{
		Tiles:      &mockTileRepo{},
		Detections: detections,
		Courts:     &mockCourtRepo{},
		Feedback:   &mockFeedbackRepo{},
		Scans:      &mockScanRepo{},
	}}
	svc := usecases.NewVerificationService(uow, &mockPublisher{}, discardLogger())

	if _, err := svc.Recompute(context.Background(), "det-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestVerificationService_CustomThresholds(t *testing.T) {
	court := &domain.Court{ID: "court-1", Status: domain.StatusPending}
	fx := newVerificationFixture(t, court, domain.FeedbackCounts{Total: 2, Positive: 2})
	fx.svc.WithThresholds(2, 1.0)

	got, err := fx.svc.Recompute(context.Background(), "det-1")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if got.Status != domain.StatusVerified {
		t.Errorf("Status = %q, want verified with lowered thresholds", got.Status)
	}
}
