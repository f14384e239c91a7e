package usecases

import (
	"context"
	"fmt"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/core/ports"
	"github.com/adierro/courtscan/internal/pkg/bbox"
	"github.com/adierro/courtscan/internal/pkg/tiles"
)

// Inference images are 512px tiles fetched @2x, so detection pixel
// coordinates live in a 1024px image space.
const (
	inferenceImageSize = 1024
	mercatorBaseTile   = 512
)

// DedupService decides whether a new detection is the same physical object
// as an already-cataloged court.
type DedupService struct {
	uow       ports.UnitOfWork
	threshold float64
}

// NewDedupService creates a DedupService with the default overlap threshold.
func NewDedupService(uow ports.UnitOfWork) *DedupService {
	return &DedupService{uow: uow, threshold: bbox.DefaultOverlapThreshold}
}

func validateDetection(d *domain.Detection) error {
	if d.BBox.X < 0 || d.BBox.Y < 0 {
		return fmt.Errorf("%w: negative pixel coordinates (%.1f, %.1f)", domain.ErrValidation, d.BBox.X, d.BBox.Y)
	}
	if d.BBox.Width <= 0 || d.BBox.Height <= 0 {
		return fmt.Errorf("%w: non-positive bbox dimensions %.1fx%.1f", domain.ErrValidation, d.BBox.Width, d.BBox.Height)
	}
	if !d.Tile.Valid() {
		return fmt.Errorf("%w: tile address %+v out of range", domain.ErrValidation, d.Tile)
	}
	return nil
}

// matchAgainst returns the best candidate match by IoU among courts that
// pass the mutual-overlap threshold, or nil when none do.
func (s *DedupService) matchAgainst(d *domain.Detection, candidates []domain.Court) *domain.DedupMatch {
	var best *domain.DedupMatch
	for _, c := range candidates {
		if !c.BBox.Defined() {
			continue
		}
		if !bbox.OverlapMeetsThreshold(d.BBox, c.BBox, s.threshold) {
			continue
		}
		iou := bbox.IoU(d.BBox, c.BBox)
		if best == nil || iou > best.IoU {
			best = &domain.DedupMatch{CourtID: c.ID, IoU: iou}
		}
	}
	return best
}

// Match validates the detection and scans same-tile same-class courts for
// the best overlap match. Returns nil when no candidate passes the
// threshold.
func (s *DedupService) Match(ctx context.Context, d *domain.Detection) (*domain.DedupMatch, error) {
	if err := validateDetection(d); err != nil {
		return nil, err
	}

	var match *domain.DedupMatch
	err := s.uow.Do(ctx, func(ctx context.Context, tx ports.Repositories) error {
		candidates, err := tx.Courts.ListByTileClass(ctx, d.Tile, d.Class)
		if err != nil {
			return fmt.Errorf("list candidates: %w", err)
		}
		match = s.matchAgainst(d, candidates)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// IngestDetection applies the dedup policy for a newly-stored detection:
// link it to the matching court if one exists, otherwise create a pending
// court seeded from the detection. The candidate read and the linkage write
// commit in one transaction. Returns the court id and whether it was
// created.
func (s *DedupService) IngestDetection(ctx context.Context, d *domain.Detection) (courtID string, created bool, err error) {
	if err := validateDetection(d); err != nil {
		return "", false, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx ports.Repositories) error {
		candidates, err := tx.Courts.ListByTileClass(ctx, d.Tile, d.Class)
		if err != nil {
			return fmt.Errorf("list candidates: %w", err)
		}

		if match := s.matchAgainst(d, candidates); match != nil {
			if err := linkDetection(ctx, tx, d.ID, match.CourtID); err != nil {
				return err
			}
			courtID = match.CourtID
			return nil
		}

		court := newCourtFromDetection(d)
		id, err := tx.Courts.Create(ctx, court)
		if err != nil {
			return fmt.Errorf("create court: %w", err)
		}
		if err := linkDetection(ctx, tx, d.ID, id); err != nil {
			return err
		}
		courtID = id
		created = true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return courtID, created, nil
}

// linkDetection attaches a detection to a court and stamps the court id
// onto any feedback already submitted for it, so feedback collected before
// the linkage still counts toward the court.
func linkDetection(ctx context.Context, tx ports.Repositories, detectionID, courtID string) error {
	if err := tx.Detections.LinkCourt(ctx, detectionID, courtID); err != nil {
		return fmt.Errorf("link detection: %w", err)
	}
	if err := tx.Feedback.LinkCourt(ctx, detectionID, courtID); err != nil {
		return fmt.Errorf("link feedback: %w", err)
	}
	return nil
}

func newCourtFromDetection(d *domain.Detection) *domain.Court {
	lat, lon := tiles.PixelToGeo(
		d.Tile.Z, d.Tile.X, d.Tile.Y,
		d.BBox.X, d.BBox.Y,
		inferenceImageSize, inferenceImageSize, mercatorBaseTile,
	)
	return &domain.Court{
		Location:          domain.GeoPoint{Lat: lat, Lon: lon},
		Class:             d.Class,
		Status:            domain.StatusPending,
		SourceDetectionID: d.ID,
		SourceModel:       d.Model,
		SourceVersion:     d.Version,
		SourceConfidence:  d.Confidence,
		BBox:              d.BBox,
		TileID:            d.TileID,
		Tile:              d.Tile,
	}
}
