package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/adierro/courtscan/internal/core/domain"
)

// ScanRepo implements ports.ScanRepository with pgx.
type ScanRepo struct {
	q querier
}

// NewScanRepo creates a pool-backed ScanRepo.
func NewScanRepo(db *DB) *ScanRepo {
	return &ScanRepo{q: db.Pool}
}

// Create inserts a scan record and returns its id.
func (r *ScanRepo) Create(ctx context.Context, s *domain.Scan) (string, error) {
	var id string
	err := r.q.QueryRow(ctx, `
		INSERT INTO scans
			(user_id, center, center_z, center_x, center_y, radius, model, version, tile_count)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography,
		        $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, s.UserID, s.Center.Lon, s.Center.Lat,
		s.CenterTile.Z, s.CenterTile.X, s.CenterTile.Y,
		s.Radius, s.Model, s.Version, s.TileCount,
	).Scan(&id)
	return id, err
}

// AddTiles links scanned tiles to a scan using pgx.Batch.
func (r *ScanRepo) AddTiles(ctx context.Context, scanID string, tileIDs []string) error {
	if len(tileIDs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, tileID := range tileIDs {
		batch.Queue(`
			INSERT INTO scan_tiles (scan_id, tile_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, scanID, tileID)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for range tileIDs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// List returns the scan history, newest first.
func (r *ScanRepo) List(ctx context.Context) ([]domain.Scan, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id,
		       ST_Y(center::geometry) as lat,
		       ST_X(center::geometry) as lon,
		       center_z, center_x, center_y, radius, model, version, tile_count, created_at
		FROM scans
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Scan
	for rows.Next() {
		var s domain.Scan
		if err := rows.Scan(
			&s.ID, &s.UserID,
			&s.Center.Lat, &s.Center.Lon,
			&s.CenterTile.Z, &s.CenterTile.X, &s.CenterTile.Y,
			&s.Radius, &s.Model, &s.Version, &s.TileCount, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
