package postgres

import (
	"context"

	"github.com/adierro/courtscan/internal/core/domain"
)

// FeedbackRepo implements ports.FeedbackRepository with pgx.
type FeedbackRepo struct {
	q querier
}

// NewFeedbackRepo creates a pool-backed FeedbackRepo.
func NewFeedbackRepo(db *DB) *FeedbackRepo {
	return &FeedbackRepo{q: db.Pool}
}

// Insert stores a submission. A second submission for the same
// (user, detection) pair hits the unique constraint and reports false.
func (r *FeedbackRepo) Insert(ctx context.Context, f *domain.FeedbackSubmission) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO feedback_submissions (user_id, detection_id, response, tile_id)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid)
		ON CONFLICT (user_id, detection_id) DO NOTHING
	`, f.UserID, f.DetectionID, f.Response, f.TileID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CountsByDetection aggregates the feedback on one detection.
func (r *FeedbackRepo) CountsByDetection(ctx context.Context, detectionID string) (domain.FeedbackCounts, error) {
	var c domain.FeedbackCounts
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE response = 'yes')
		FROM feedback_submissions
		WHERE detection_id = $1
	`, detectionID).Scan(&c.Total, &c.Positive)
	return c, err
}

// CountByUser returns how many submissions a user has made.
func (r *FeedbackRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM feedback_submissions WHERE user_id = $1
	`, userID).Scan(&n)
	return n, err
}

// LinkCourt stamps the court id onto every submission for a detection.
func (r *FeedbackRepo) LinkCourt(ctx context.Context, detectionID, courtID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE feedback_submissions SET court_id = $2 WHERE detection_id = $1
	`, detectionID, courtID)
	return err
}
