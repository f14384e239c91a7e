package ports

import (
	"context"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/pkg/tiles"
)

// TileRepository persists satellite tile records keyed by (z,x,y).
type TileRepository interface {
	GetOrCreate(ctx context.Context, addr tiles.Tile) (*domain.TileRecord, error)
	GetByID(ctx context.Context, id string) (*domain.TileRecord, error)
	GetByAddress(ctx context.Context, addr tiles.Tile) (*domain.TileRecord, error)
	SetReverseGeocode(ctx context.Context, id, name string) error
}

// DetectionRepository persists inference detections.
type DetectionRepository interface {
	// Upsert inserts a detection or updates the existing row sharing the
	// same (tile, model, version, provider detection id). Returns the id.
	Upsert(ctx context.Context, d *domain.Detection) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Detection, error)
	ListByTile(ctx context.Context, tileID string) ([]domain.Detection, error)
	// LinkCourt attaches a detection to a catalog court.
	LinkCourt(ctx context.Context, detectionID, courtID string) error
	// NextUnreviewed returns the oldest detection the user has not submitted
	// feedback for, skipping the given ids. Nil result means all done.
	NextUnreviewed(ctx context.Context, userID string, skipIDs []string) (*domain.Detection, error)
	Count(ctx context.Context) (int, error)
}

// CourtRepository persists catalog courts.
type CourtRepository interface {
	Create(ctx context.Context, c *domain.Court) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Court, error)
	// ListByTileClass returns dedup candidates: courts on the exact tile
	// address with the given class.
	ListByTileClass(ctx context.Context, addr tiles.Tile, class string) ([]domain.Court, error)
	// ListByTiles returns courts whose tile address is in the set,
	// optionally filtered by status ("" = all).
	ListByTiles(ctx context.Context, addrs []tiles.Tile, status domain.CourtStatus) ([]domain.Court, error)
	ListByClassStatus(ctx context.Context, class string, status domain.CourtStatus) ([]domain.Court, error)
	// UpdateVerification writes counters, status, and verified-at in one
	// statement, atomically with the enclosing transaction.
	UpdateVerification(ctx context.Context, c *domain.Court) error
	SetStatus(ctx context.Context, id string, status domain.CourtStatus) error
}

// FeedbackRepository persists feedback submissions.
type FeedbackRepository interface {
	// Insert stores a submission. Returns false when a submission for the
	// same (user, detection) already exists; that is not an error.
	Insert(ctx context.Context, f *domain.FeedbackSubmission) (bool, error)
	CountsByDetection(ctx context.Context, detectionID string) (domain.FeedbackCounts, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// LinkCourt stamps the court id onto all submissions for a detection.
	LinkCourt(ctx context.Context, detectionID, courtID string) error
}

// ScanRepository persists area scans.
type ScanRepository interface {
	Create(ctx context.Context, s *domain.Scan) (string, error)
	AddTiles(ctx context.Context, scanID string, tileIDs []string) error
	List(ctx context.Context) ([]domain.Scan, error)
}

// UnitOfWork runs fn inside a single store transaction: every repository
// call made through the transactional repositories it yields commits
// together or not at all.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}

// Repositories bundles the transactional repository set handed to a
// UnitOfWork callback.
type Repositories struct {
	Tiles      TileRepository
	Detections DetectionRepository
	Courts     CourtRepository
	Feedback   FeedbackRepository
	Scans      ScanRepository
}
