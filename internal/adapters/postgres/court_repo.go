package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/pkg/tiles"
)

// CourtRepo implements ports.CourtRepository with pgx.
type CourtRepo struct {
	q querier
}

// NewCourtRepo creates a pool-backed CourtRepo.
func NewCourtRepo(db *DB) *CourtRepo {
	return &CourtRepo{q: db.Pool}
}

const courtColumns = `
	c.id,
	ST_Y(c.location::geometry) as lat,
	ST_X(c.location::geometry) as lon,
	c.class, c.status, c.verified_at,
	c.source_detection_id, COALESCE(c.source_model, ''), COALESCE(c.source_version, ''), c.source_confidence,
	c.total_feedback_count, c.positive_feedback_count,
	c.bbox_x, c.bbox_y, c.bbox_width, c.bbox_height,
	c.tile_id, t.z, t.x, t.y, c.created_at`

func scanCourt(row pgx.Row) (*domain.Court, error) {
	var c domain.Court
	err := row.Scan(
		&c.ID,
		&c.Location.Lat, &c.Location.Lon,
		&c.Class, &c.Status, &c.VerifiedAt,
		&c.SourceDetectionID, &c.SourceModel, &c.SourceVersion, &c.SourceConfidence,
		&c.TotalFeedbackCount, &c.PositiveFeedbackCount,
		&c.BBox.X, &c.BBox.Y, &c.BBox.Width, &c.BBox.Height,
		&c.TileID, &c.Tile.Z, &c.Tile.X, &c.Tile.Y, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a court and returns its id.
func (r *CourtRepo) Create(ctx context.Context, c *domain.Court) (string, error) {
	var id string
	err := r.q.QueryRow(ctx, `
		INSERT INTO courts
			(location, class, status,
			 source_detection_id, source_model, source_version, source_confidence,
			 bbox_x, bbox_y, bbox_width, bbox_height, tile_id)
		VALUES (ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3, $4,
		        $5, NULLIF($6, ''), NULLIF($7, ''), $8,
		        $9, $10, $11, $12, $13)
		RETURNING id
	`, c.Location.Lon, c.Location.Lat, c.Class, c.Status,
		c.SourceDetectionID, c.SourceModel, c.SourceVersion, c.SourceConfidence,
		c.BBox.X, c.BBox.Y, c.BBox.Width, c.BBox.Height, c.TileID,
	).Scan(&id)
	return id, err
}

// GetByID returns a court by UUID, nil when missing.
func (r *CourtRepo) GetByID(ctx context.Context, id string) (*domain.Court, error) {
	return scanCourt(r.q.QueryRow(ctx, `
		SELECT `+courtColumns+`
		FROM courts c JOIN tiles t ON t.id = c.tile_id
		WHERE c.id = $1
	`, id))
}

// ListByTileClass returns the dedup candidates on one tile address.
func (r *CourtRepo) ListByTileClass(ctx context.Context, addr tiles.Tile, class string) ([]domain.Court, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+courtColumns+`
		FROM courts c JOIN tiles t ON t.id = c.tile_id
		WHERE t.z = $1 AND t.x = $2 AND t.y = $3 AND c.class = $4
	`, addr.Z, addr.X, addr.Y, class)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCourts(rows)
}

// ListByTiles returns courts on any of the tile addresses, optionally
// filtered by status.
func (r *CourtRepo) ListByTiles(ctx context.Context, addrs []tiles.Tile, status domain.CourtStatus) ([]domain.Court, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	zs := make([]int, len(addrs))
	xs := make([]int, len(addrs))
	ys := make([]int, len(addrs))
	for i, a := range addrs {
		zs[i], xs[i], ys[i] = a.Z, a.X, a.Y
	}

	rows, err := r.q.Query(ctx, `
		SELECT `+courtColumns+`
		FROM courts c JOIN tiles t ON t.id = c.tile_id
		WHERE (t.z, t.x, t.y) IN (SELECT * FROM unnest($1::int[], $2::int[], $3::int[]))
		AND ($4 = '' OR c.status = $4)
	`, zs, xs, ys, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCourts(rows)
}

// ListByClassStatus returns courts of one class in one status.
func (r *CourtRepo) ListByClassStatus(ctx context.Context, class string, status domain.CourtStatus) ([]domain.Court, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+courtColumns+`
		FROM courts c JOIN tiles t ON t.id = c.tile_id
		WHERE c.class = $1 AND c.status = $2
		ORDER BY c.created_at
	`, class, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCourts(rows)
}

// UpdateVerification writes feedback counters, status and verified-at in
// one statement.
func (r *CourtRepo) UpdateVerification(ctx context.Context, c *domain.Court) error {
	_, err := r.q.Exec(ctx, `
		UPDATE courts
		SET total_feedback_count = $2,
		    positive_feedback_count = $3,
		    status = $4,
		    verified_at = $5
		WHERE id = $1
	`, c.ID, c.TotalFeedbackCount, c.PositiveFeedbackCount, c.Status, c.VerifiedAt)
	return err
}

// SetStatus sets only the court status.
func (r *CourtRepo) SetStatus(ctx context.Context, id string, status domain.CourtStatus) error {
	_, err := r.q.Exec(ctx, `
		UPDATE courts SET status = $2 WHERE id = $1
	`, id, status)
	return err
}

func collectCourts(rows pgx.Rows) ([]domain.Court, error) {
	var out []domain.Court
	for rows.Next() {
		c, err := scanCourt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
