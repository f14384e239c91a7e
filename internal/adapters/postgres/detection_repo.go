package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/adierro/courtscan/internal/core/domain"
)

// DetectionRepo implements ports.DetectionRepository with pgx.
type DetectionRepo struct {
	q querier
}

// NewDetectionRepo creates a pool-backed DetectionRepo.
func NewDetectionRepo(db *DB) *DetectionRepo {
	return &DetectionRepo{q: db.Pool}
}

const detectionColumns = `
	d.id, d.tile_id, t.z, t.x, t.y, d.class, d.confidence,
	d.bbox_x, d.bbox_y, d.bbox_width, d.bbox_height,
	d.model, d.version, d.provider_detection_id,
	COALESCE(d.inference_id, ''), COALESCE(d.court_id::text, ''), d.created_at`

func scanDetection(row pgx.Row) (*domain.Detection, error) {
	var d domain.Detection
	err := row.Scan(
		&d.ID, &d.TileID, &d.Tile.Z, &d.Tile.X, &d.Tile.Y, &d.Class, &d.Confidence,
		&d.BBox.X, &d.BBox.Y, &d.BBox.Width, &d.BBox.Height,
		&d.Model, &d.Version, &d.DetectionID,
		&d.InferenceID, &d.CourtID, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Upsert inserts a detection, or refreshes the confidence and bbox of the
// existing row for the same provider detection on the same tile and model.
func (r *DetectionRepo) Upsert(ctx context.Context, d *domain.Detection) (string, error) {
	var id string
	err := r.q.QueryRow(ctx, `
		INSERT INTO detections
			(tile_id, class, confidence, bbox_x, bbox_y, bbox_width, bbox_height,
			 model, version, provider_detection_id, inference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
		ON CONFLICT (tile_id, model, version, provider_detection_id) DO UPDATE
		SET confidence = EXCLUDED.confidence,
		    bbox_x = EXCLUDED.bbox_x, bbox_y = EXCLUDED.bbox_y,
		    bbox_width = EXCLUDED.bbox_width, bbox_height = EXCLUDED.bbox_height,
		    inference_id = EXCLUDED.inference_id
		RETURNING id
	`, d.TileID, d.Class, d.Confidence,
		d.BBox.X, d.BBox.Y, d.BBox.Width, d.BBox.Height,
		d.Model, d.Version, d.DetectionID, d.InferenceID,
	).Scan(&id)
	return id, err
}

// GetByID returns a detection by UUID, nil when missing.
func (r *DetectionRepo) GetByID(ctx context.Context, id string) (*domain.Detection, error) {
	return scanDetection(r.q.QueryRow(ctx, `
		SELECT `+detectionColumns+`
		FROM detections d JOIN tiles t ON t.id = d.tile_id
		WHERE d.id = $1
	`, id))
}

// ListByTile returns every detection on one tile.
func (r *DetectionRepo) ListByTile(ctx context.Context, tileID string) ([]domain.Detection, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+detectionColumns+`
		FROM detections d JOIN tiles t ON t.id = d.tile_id
		WHERE d.tile_id = $1
		ORDER BY d.created_at
	`, tileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Detection
	for rows.Next() {
		d, err := scanDetection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// LinkCourt attaches a detection to a catalog court.
func (r *DetectionRepo) LinkCourt(ctx context.Context, detectionID, courtID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE detections SET court_id = $2 WHERE id = $1
	`, detectionID, courtID)
	return err
}

// NextUnreviewed returns the oldest detection the user has no submission
// for, skipping the given ids. Nil when the user has reviewed everything.
func (r *DetectionRepo) NextUnreviewed(ctx context.Context, userID string, skipIDs []string) (*domain.Detection, error) {
	if skipIDs == nil {
		skipIDs = []string{}
	}
	return scanDetection(r.q.QueryRow(ctx, `
		SELECT `+detectionColumns+`
		FROM detections d JOIN tiles t ON t.id = d.tile_id
		WHERE NOT EXISTS (
			SELECT 1 FROM feedback_submissions f
			WHERE f.detection_id = d.id AND f.user_id = $1
		)
		AND d.id <> ALL($2::uuid[])
		ORDER BY d.created_at
		LIMIT 1
	`, userID, skipIDs))
}

// Count returns the total number of detections.
func (r *DetectionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM detections`).Scan(&n)
	return n, err
}
