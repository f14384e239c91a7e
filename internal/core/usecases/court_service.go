package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/core/ports"
	"github.com/adierro/courtscan/internal/pkg/geospatial"
	"github.com/adierro/courtscan/internal/pkg/tiles"
)

// DefaultZoom is the pyramid level the catalog is built at.
const DefaultZoom = 16

// maxViewportTiles caps how many tiles one viewport query may touch. A
// zoomed-out viewport over the whole world would otherwise enumerate the
// entire pyramid level.
const maxViewportTiles = 256

// ClassRadius returns the nearby-search radius in meters for a detection
// class. Court footprints differ by sport, so "near" does too.
func ClassRadius(class string) float64 {
	switch class {
	case "basketball-court":
		return 10
	case "tennis-court":
		return 8
	case "soccer-field":
		return 16
	case "baseball-diamond":
		return 32
	case "track-field":
		return 16
	default:
		return 20
	}
}

// CourtService serves catalog reads and the admin rejection write.
type CourtService struct {
	courts ports.CourtRepository
	cache  ports.CacheService
}

// NewCourtService creates a new CourtService.
func NewCourtService(courts ports.CourtRepository, cache ports.CacheService) *CourtService {
	return &CourtService{courts: courts, cache: cache}
}

// ListByViewport returns the courts inside a map viewport as a GeoJSON
// feature collection, optionally filtered by status ("" = all).
func (s *CourtService) ListByViewport(ctx context.Context, viewport tiles.ViewportBBox, zoom int, status domain.CourtStatus) (*domain.FeatureCollection, error) {
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	if viewport.MinLat > viewport.MaxLat {
		return nil, fmt.Errorf("%w: min latitude above max", domain.ErrValidation)
	}

	if n := tiles.CountTilesIntersectingBBox(viewport, zoom); n > maxViewportTiles {
		return nil, fmt.Errorf("%w: viewport covers %d tiles, max %d", domain.ErrValidation, n, maxViewportTiles)
	}
	addrs := tiles.TilesIntersectingBBox(viewport, zoom)

	cacheKey := fmt.Sprintf("courts:viewport:%d:%s:%.4f:%.4f:%.4f:%.4f",
		zoom, status, viewport.MinLat, viewport.MinLng, viewport.MaxLat, viewport.MaxLng)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var fc domain.FeatureCollection
			if err := json.Unmarshal(data, &fc); err == nil {
				return &fc, nil
			}
		}
	}

	courts, err := s.courts.ListByTiles(ctx, addrs, status)
	if err != nil {
		return nil, err
	}

	fc := &domain.FeatureCollection{Type: "FeatureCollection", Features: make([]domain.Feature, 0, len(courts))}
	for i := range courts {
		fc.Features = append(fc.Features, courtFeature(&courts[i]))
	}

	// Short TTL: verification flips should surface quickly.
	if s.cache != nil {
		if data, err := json.Marshal(fc); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}

	return fc, nil
}

// GetByID returns a single court.
func (s *CourtService) GetByID(ctx context.Context, id string) (*domain.Court, error) {
	cacheKey := "courts:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var court domain.Court
			if err := json.Unmarshal(data, &court); err == nil {
				return &court, nil
			}
		}
	}

	court, err := s.courts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if court == nil {
		return nil, fmt.Errorf("%w: court %s", domain.ErrNotFound, id)
	}

	if s.cache != nil {
		if data, err := json.Marshal(court); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return court, nil
}

// FindNearby returns courts within radiusMeters of a point, closest first,
// with Distance populated. radiusMeters <= 0 falls back to the per-class
// radius (or the base radius when class is empty).
func (s *CourtService) FindNearby(ctx context.Context, lat, lon float64, class string, radiusMeters float64, limit int) ([]domain.Court, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrValidation)
	}
	if radiusMeters <= 0 {
		radiusMeters = ClassRadius(class)
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	// One ring of catalog tiles around the point covers any per-class
	// radius at this zoom level with lots of margin.
	grid := tiles.TilesInRadius(tiles.PointToTile(lat, lon, DefaultZoom), 1)
	candidates, err := s.courts.ListByTiles(ctx, grid.Tiles, "")
	if err != nil {
		return nil, err
	}

	nearby := make([]domain.Court, 0, len(candidates))
	for _, c := range candidates {
		if class != "" && c.Class != class {
			continue
		}
		d := geospatial.Haversine(lat, lon, c.Location.Lat, c.Location.Lon)
		if d > radiusMeters {
			continue
		}
		c.Distance = &d
		nearby = append(nearby, c)
	}
	sort.Slice(nearby, func(i, j int) bool { return *nearby[i].Distance < *nearby[j].Distance })
	if len(nearby) > limit {
		nearby = nearby[:limit]
	}
	return nearby, nil
}

// Reject marks a court as rejected. This is the only path out of the
// verified/pending states and it is manual on purpose.
func (s *CourtService) Reject(ctx context.Context, id string) error {
	court, err := s.courts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if court == nil {
		return fmt.Errorf("%w: court %s", domain.ErrNotFound, id)
	}
	if err := s.courts.SetStatus(ctx, id, domain.StatusRejected); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, "courts:id:"+id)
	}
	return nil
}

func courtFeature(c *domain.Court) domain.Feature {
	props := map[string]any{
		"id":         c.ID,
		"class":      c.Class,
		"status":     string(c.Status),
		"confidence": c.SourceConfidence,
	}
	if c.VerifiedAt != nil {
		props["verified_at"] = c.VerifiedAt
	}
	return domain.NewPointFeature(c.Location, props)
}
