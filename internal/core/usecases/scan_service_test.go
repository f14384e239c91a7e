package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/core/ports"
	"github.com/adierro/courtscan/internal/core/usecases"
	"github.com/adierro/courtscan/internal/pkg/tiles"
)

type scanFixture struct {
	mu        sync.Mutex
	upserts   []domain.Detection
	created   []domain.Court
	scanTiles []string
	geocoded  []string
	repos     ports.Repositories
}

func newScanFixture() *scanFixture {
	fx := &scanFixture{}
	var nextDetection int
	fx.repos = ports.Repositories{
		Tiles: &mockTileRepo{
			getOrCreateFn: func(ctx context.Context, addr tiles.Tile) (*domain.TileRecord, error) {
				return &domain.TileRecord{ID: "tile-" + addr.String(), Address: addr}, nil
			},
			setReverseGeocodeFn: func(ctx context.Context, id, name string) error {
				fx.mu.Lock()
				defer fx.mu.Unlock()
				fx.geocoded = append(fx.geocoded, id)
				return nil
			},
		},
		Detections: &mockDetectionRepo{
			upsertFn: func(ctx context.Context, d *domain.Detection) (string, error) {
				fx.mu.Lock()
				defer fx.mu.Unlock()
				nextDetection++
				fx.upserts = append(fx.upserts, *d)
				return "det-" + d.Tile.String(), nil
			},
		},
		Courts: &mockCourtRepo{
			createFn: func(ctx context.Context, c *domain.Court) (string, error) {
				fx.mu.Lock()
				defer fx.mu.Unlock()
				fx.created = append(fx.created, *c)
				return "court-" + c.Tile.String(), nil
			},
		},
		Feedback: &mockFeedbackRepo{},
		Scans: &mockScanRepo{
			addTilesFn: func(ctx context.Context, scanID string, tileIDs []string) error {
				fx.mu.Lock()
				defer fx.mu.Unlock()
				fx.scanTiles = append(fx.scanTiles, tileIDs...)
				return nil
			},
		},
	}
	return fx
}

func oneCourtInference() *mockInference {
	return &mockInference{
		detectFn: func(ctx context.Context, imageURL string) (*domain.InferenceResult, error) {
			return &domain.InferenceResult{
				InferenceID: "inf-1",
				ImageWidth:  1024,
				ImageHeight: 1024,
				Predictions: []domain.Prediction{
					{X: 512, Y: 512, Width: 80, Height: 40, Confidence: 0.88, Class: "tennis-court", DetectionID: "p-1"},
				},
			}, nil
		},
	}
}

func TestScanService_Run_FullGrid(t *testing.T) {
	fx := newScanFixture()
	uow := &mockUOW{repos: fx.repos}
	svc := usecases.NewScanService(
		uow, &mockTileImages{}, oneCourtInference(), &mockGeocoder{
			reverseFn: func(ctx context.Context, lat, lon float64) (string, error) {
				return "Springfield", nil
			},
		},
		usecases.NewDedupService(uow), discardLogger(),
	).WithConcurrency(2)

	result, err := svc.Run(context.Background(), "user-1", domain.GeoPoint{Lat: 40.0, Lon: -74.0}, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TileCount != 9 {
		t.Errorf("TileCount = %d, want 9 for radius 1", result.TileCount)
	}
	if result.FailedTiles != 0 {
		t.Errorf("FailedTiles = %d, want 0", result.FailedTiles)
	}
	if result.Detections != 9 {
		t.Errorf("Detections = %d, want one per tile", result.Detections)
	}
	// Each tile has its own catalog candidates, so every detection opens
	// a new court.
	if result.CourtsCreated != 9 || result.CourtsLinked != 0 {
		t.Errorf("courts created/linked = %d/%d, want 9/0", result.CourtsCreated, result.CourtsLinked)
	}
	if len(fx.scanTiles) != 9 {
		t.Errorf("scan tiles recorded = %d, want 9", len(fx.scanTiles))
	}
	if len(fx.geocoded) != 9 {
		t.Errorf("geocoded tiles = %d, want 9", len(fx.geocoded))
	}
	for _, d := range fx.upserts {
		if d.Model != "court-detection" || d.Version != "9" {
			t.Fatalf("detection model = %s/%s", d.Model, d.Version)
		}
		if d.InferenceID != "inf-1" {
			t.Fatalf("InferenceID = %q", d.InferenceID)
		}
	}
}

func TestScanService_Run_TileFailuresAreCounted(t *testing.T) {
	fx := newScanFixture()
	uow := &mockUOW{repos: fx.repos}

	var calls int
	var mu sync.Mutex
	inference := &mockInference{
		detectFn: func(ctx context.Context, imageURL string) (*domain.InferenceResult, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n%2 == 0 {
				return nil, errors.New("inference timeout")
			}
			return &domain.InferenceResult{}, nil
		},
	}
	svc := usecases.NewScanService(uow, &mockTileImages{}, inference, &mockGeocoder{}, usecases.NewDedupService(uow), discardLogger()).
		WithConcurrency(1)

	result, err := svc.Run(context.Background(), "user-1", domain.GeoPoint{Lat: 40.0, Lon: -74.0}, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FailedTiles != 4 {
		t.Errorf("FailedTiles = %d, want 4 of 9", result.FailedTiles)
	}
	if len(fx.scanTiles) != 5 {
		t.Errorf("recorded tiles = %d, want the 5 successes", len(fx.scanTiles))
	}
}

func TestScanService_Run_ValidatesRadius(t *testing.T) {
	uow := &mockUOW{repos: newScanFixture().repos}
	svc := usecases.NewScanService(uow, &mockTileImages{}, &mockInference{}, &mockGeocoder{}, usecases.NewDedupService(uow), discardLogger())

	if _, err := svc.Run(context.Background(), "u", domain.GeoPoint{}, usecases.MaxScanRadius+1); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("oversized radius: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Run(context.Background(), "u", domain.GeoPoint{}, -1); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("negative radius: err = %v, want ErrValidation", err)
	}
}

func TestScanService_List(t *testing.T) {
	repos := newScanFixture().repos
	repos.Scans = &mockScanRepo{
		listFn: func(ctx context.Context) ([]domain.Scan, error) {
			return []domain.Scan{{ID: "scan-2"}, {ID: "scan-1"}}, nil
		},
	}
	uow := &mockUOW{repos: repos}
	svc := usecases.NewScanService(uow, &mockTileImages{}, &mockInference{}, &mockGeocoder{}, usecases.NewDedupService(uow), discardLogger())

	scans, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(scans) != 2 || scans[0].ID != "scan-2" {
		t.Errorf("scans = %+v", scans)
	}
}
