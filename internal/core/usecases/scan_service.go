package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/core/ports"
	"github.com/adierro/courtscan/internal/pkg/bbox"
	"github.com/adierro/courtscan/internal/pkg/metrics"
	"github.com/adierro/courtscan/internal/pkg/tiles"
)

// MaxScanRadius bounds the scan grid: radius 5 is an 11x11 grid, 121 tile
// fetches and inference calls per scan.
const MaxScanRadius = 5

// ScanResult summarizes one completed area scan.
type ScanResult struct {
	ScanID        string `json:"scan_id"`
	TileCount     int    `json:"tile_count"`
	FailedTiles   int    `json:"failed_tiles"`
	Detections    int    `json:"detections"`
	CourtsCreated int    `json:"courts_created"`
	CourtsLinked  int    `json:"courts_linked"`
}

// ScanService expands a center point into a tile grid and runs every tile
// through the detection pipeline: fetch URL, infer, store detections,
// dedup into the catalog.
type ScanService struct {
	uow        ports.UnitOfWork
	tileImages ports.TileImageProvider
	inference  ports.InferenceProvider
	geocoder   ports.Geocoder
	dedup      *DedupService
	logger     *slog.Logger

	concurrency int
}

func NewScanService(
	uow ports.UnitOfWork,
	tileImages ports.TileImageProvider,
	inference ports.InferenceProvider,
	geocoder ports.Geocoder,
	dedup *DedupService,
	logger *slog.Logger,
) *ScanService {
	return &ScanService{
		uow:         uow,
		tileImages:  tileImages,
		inference:   inference,
		geocoder:    geocoder,
		dedup:       dedup,
		logger:      logger,
		concurrency: 4,
	}
}

// WithConcurrency overrides how many tiles are processed in parallel.
func (s *ScanService) WithConcurrency(n int) *ScanService {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Run scans the square grid of tiles around a center point. Tile failures
// are logged and counted, not fatal: a scan that covers most of its grid is
// still useful.
func (s *ScanService) Run(ctx context.Context, userID string, center domain.GeoPoint, radius int) (*ScanResult, error) {
	if radius < 0 || radius > MaxScanRadius {
		return nil, fmt.Errorf("%w: radius %d out of [0, %d]", domain.ErrValidation, radius, MaxScanRadius)
	}
	if center.Lat < -90 || center.Lat > 90 || center.Lon < -180 || center.Lon > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrValidation)
	}

	centerTile := tiles.PointToTile(center.Lat, center.Lon, DefaultZoom)
	grid := tiles.TilesInRadius(centerTile, radius)
	model, version := s.inference.Model()

	scan := &domain.Scan{
		UserID:     userID,
		Center:     center,
		CenterTile: centerTile,
		Radius:     radius,
		Model:      model,
		Version:    version,
		TileCount:  len(grid.Tiles),
	}
	err := s.uow.Do(ctx, func(ctx context.Context, tx ports.Repositories) error {
		id, err := tx.Scans.Create(ctx, scan)
		if err != nil {
			return fmt.Errorf("create scan: %w", err)
		}
		scan.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &ScanResult{ScanID: scan.ID, TileCount: len(grid.Tiles)}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		tileIDs []string
	)
	sem := make(chan struct{}, s.concurrency)

	for _, addr := range grid.Tiles {
		wg.Add(1)
		go func(addr tiles.Tile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			stats, tileID, err := s.scanTile(ctx, addr, model, version)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.FailedTiles++
				s.logger.Error("tile scan failed",
					slog.String("tile", addr.String()), slog.Any("error", err))
				return
			}
			tileIDs = append(tileIDs, tileID)
			result.Detections += stats.Detections
			result.CourtsCreated += stats.CourtsCreated
			result.CourtsLinked += stats.CourtsLinked
		}(addr)
	}
	wg.Wait()

	if len(tileIDs) > 0 {
		err = s.uow.Do(ctx, func(ctx context.Context, tx ports.Repositories) error {
			return tx.Scans.AddTiles(ctx, scan.ID, tileIDs)
		})
		if err != nil {
			return nil, fmt.Errorf("record scan tiles: %w", err)
		}
	}

	s.logger.Info("scan complete",
		slog.String("scan_id", scan.ID),
		slog.Int("tiles", result.TileCount),
		slog.Int("failed", result.FailedTiles),
		slog.Int("detections", result.Detections),
		slog.Int("courts_created", result.CourtsCreated))

	return result, nil
}

type tileStats struct {
	Detections    int
	CourtsCreated int
	CourtsLinked  int
}

func (s *ScanService) scanTile(ctx context.Context, addr tiles.Tile, model, version string) (tileStats, string, error) {
	var stats tileStats

	var rec *domain.TileRecord
	err := s.uow.Do(ctx, func(ctx context.Context, tx ports.Repositories) error {
		var err error
		rec, err = tx.Tiles.GetOrCreate(ctx, addr)
		return err
	})
	if err != nil {
		return stats, "", fmt.Errorf("tile record: %w", err)
	}

	if rec.ReverseGeocode == "" {
		s.geocodeTile(ctx, rec)
	}

	inferred, err := s.inference.Detect(ctx, s.tileImages.TileURL(addr))
	if err != nil {
		metrics.InferenceErrors.Inc()
		return stats, "", fmt.Errorf("inference: %w", err)
	}

	for _, p := range inferred.Predictions {
		detection := &domain.Detection{
			TileID:      rec.ID,
			Tile:        addr,
			Class:       p.Class,
			Confidence:  p.Confidence,
			BBox:        predictionBBox(p),
			Model:       model,
			Version:     version,
			DetectionID: p.DetectionID,
			InferenceID: inferred.InferenceID,
		}

		err := s.uow.Do(ctx, func(ctx context.Context, tx ports.Repositories) error {
			id, err := tx.Detections.Upsert(ctx, detection)
			if err != nil {
				return err
			}
			detection.ID = id
			return nil
		})
		if err != nil {
			return stats, "", fmt.Errorf("store detection: %w", err)
		}

		_, created, err := s.dedup.IngestDetection(ctx, detection)
		if err != nil {
			return stats, "", fmt.Errorf("dedup detection: %w", err)
		}
		stats.Detections++
		metrics.DetectionsIngested.WithLabelValues(p.Class).Inc()
		if created {
			stats.CourtsCreated++
			metrics.CourtsCreated.WithLabelValues(p.Class).Inc()
		} else {
			stats.CourtsLinked++
		}
	}

	return stats, rec.ID, nil
}

// geocodeTile attaches a place name to a tile, best effort. The geocoder
// already degrades to a "lat, lon" string internally, so an error here
// means the tile just stays unnamed.
func (s *ScanService) geocodeTile(ctx context.Context, rec *domain.TileRecord) {
	b := tiles.TileBounds(rec.Address.Z, rec.Address.X, rec.Address.Y)
	lat := (b.North + b.South) / 2
	lon := (b.West + b.East) / 2

	name, err := s.geocoder.Reverse(ctx, lat, lon)
	if err != nil || name == "" {
		return
	}
	err = s.uow.Do(ctx, func(ctx context.Context, tx ports.Repositories) error {
		return tx.Tiles.SetReverseGeocode(ctx, rec.ID, name)
	})
	if err != nil {
		s.logger.Warn("store reverse geocode failed",
			slog.String("tile_id", rec.ID), slog.Any("error", err))
		return
	}
	rec.ReverseGeocode = name
}

func predictionBBox(p domain.Prediction) bbox.PixelBBox {
	return bbox.PixelBBox{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

// List returns the scan history, newest first.
func (s *ScanService) List(ctx context.Context) ([]domain.Scan, error) {
	var scans []domain.Scan
	err := s.uow.Do(ctx, func(ctx context.Context, tx ports.Repositories) error {
		var err error
		scans, err = tx.Scans.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return scans, nil
}
