package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/pkg/tiles"
)

// TileRepo implements ports.TileRepository with pgx.
type TileRepo struct {
	q querier
}

// NewTileRepo creates a pool-backed TileRepo.
func NewTileRepo(db *DB) *TileRepo {
	return &TileRepo{q: db.Pool}
}

const tileColumns = `id, z, x, y, COALESCE(reverse_geocode, ''), created_at`

func scanTile(row pgx.Row) (*domain.TileRecord, error) {
	var t domain.TileRecord
	err := row.Scan(&t.ID, &t.Address.Z, &t.Address.X, &t.Address.Y, &t.ReverseGeocode, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetOrCreate returns the tile row for an address, inserting it first if it
// does not exist yet. Concurrent callers converge on the same row.
func (r *TileRepo) GetOrCreate(ctx context.Context, addr tiles.Tile) (*domain.TileRecord, error) {
	return scanTile(r.q.QueryRow(ctx, `
		INSERT INTO tiles (z, x, y)
		VALUES ($1, $2, $3)
		ON CONFLICT (z, x, y) DO UPDATE SET z = EXCLUDED.z
		RETURNING `+tileColumns+`
	`, addr.Z, addr.X, addr.Y))
}

// GetByID returns a tile by UUID, nil when missing.
func (r *TileRepo) GetByID(ctx context.Context, id string) (*domain.TileRecord, error) {
	return scanTile(r.q.QueryRow(ctx, `
		SELECT `+tileColumns+` FROM tiles WHERE id = $1
	`, id))
}

// GetByAddress returns a tile by its (z,x,y) address, nil when missing.
func (r *TileRepo) GetByAddress(ctx context.Context, addr tiles.Tile) (*domain.TileRecord, error) {
	return scanTile(r.q.QueryRow(ctx, `
		SELECT `+tileColumns+` FROM tiles WHERE z = $1 AND x = $2 AND y = $3
	`, addr.Z, addr.X, addr.Y))
}

// SetReverseGeocode stores the place name for a tile.
func (r *TileRepo) SetReverseGeocode(ctx context.Context, id, name string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE tiles SET reverse_geocode = $2 WHERE id = $1
	`, id, name)
	return err
}
