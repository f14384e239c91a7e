package usecases_test

import (
	"context"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/core/ports"
	"github.com/adierro/courtscan/internal/pkg/tiles"
)

// Shared function-field mocks for the usecase tests. Nil fields return
// zero values so each test only wires the calls it cares about.

// --- Mock UnitOfWork ---

type mockUOW struct {
	repos ports.Repositories
}

func (m *mockUOW) Do(ctx context.Context, fn func(ctx context.Context, tx ports.Repositories) error) error {
	return fn(ctx, m.repos)
}

// --- Mock TileRepository ---

type mockTileRepo struct {
	getOrCreateFn       func(ctx context.Context, addr tiles.Tile) (*domain.TileRecord, error)
	getByIDFn           func(ctx context.Context, id string) (*domain.TileRecord, error)
	getByAddressFn      func(ctx context.Context, addr tiles.Tile) (*domain.TileRecord, error)
	setReverseGeocodeFn func(ctx context.Context, id, name string) error
}

func (m *mockTileRepo) GetOrCreate(ctx context.Context, addr tiles.Tile) (*domain.TileRecord, error) {
	if m.getOrCreateFn != nil {
		return m.getOrCreateFn(ctx, addr)
	}
	return &domain.TileRecord{ID: "tile-1", Address: addr}, nil
}

func (m *mockTileRepo) GetByID(ctx context.Context, id string) (*domain.TileRecord, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockTileRepo) GetByAddress(ctx context.Context, addr tiles.Tile) (*domain.TileRecord, error) {
	if m.getByAddressFn != nil {
		return m.getByAddressFn(ctx, addr)
	}
	return nil, nil
}

func (m *mockTileRepo) SetReverseGeocode(ctx context.Context, id, name string) error {
	if m.setReverseGeocodeFn != nil {
		return m.setReverseGeocodeFn(ctx, id, name)
	}
	return nil
}

// --- Mock DetectionRepository ---

type mockDetectionRepo struct {
	upsertFn         func(ctx context.Context, d *domain.Detection) (string, error)
	getByIDFn        func(ctx context.Context, id string) (*domain.Detection, error)
	listByTileFn     func(ctx context.Context, tileID string) ([]domain.Detection, error)
	linkCourtFn      func(ctx context.Context, detectionID, courtID string) error
	nextUnreviewedFn func(ctx context.Context, userID string, skipIDs []string) (*domain.Detection, error)
	countFn          func(ctx context.Context) (int, error)
}

func (m *mockDetectionRepo) Upsert(ctx context.Context, d *domain.Detection) (string, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, d)
	}
	return "det-1", nil
}

func (m *mockDetectionRepo) GetByID(ctx context.Context, id string) (*domain.Detection, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockDetectionRepo) ListByTile(ctx context.Context, tileID string) ([]domain.Detection, error) {
	if m.listByTileFn != nil {
		return m.listByTileFn(ctx, tileID)
	}
	return nil, nil
}

func (m *mockDetectionRepo) LinkCourt(ctx context.Context, detectionID, courtID string) error {
	if m.linkCourtFn != nil {
		return m.linkCourtFn(ctx, detectionID, courtID)
	}
	return nil
}

func (m *mockDetectionRepo) NextUnreviewed(ctx context.Context, userID string, skipIDs []string) (*domain.Detection, error) {
	if m.nextUnreviewedFn != nil {
		return m.nextUnreviewedFn(ctx, userID, skipIDs)
	}
	return nil, nil
}

func (m *mockDetectionRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

// --- Mock CourtRepository ---

type mockCourtRepo struct {
	createFn             func(ctx context.Context, c *domain.Court) (string, error)
	getByIDFn            func(ctx context.Context, id string) (*domain.Court, error)
	listByTileClassFn    func(ctx context.Context, addr tiles.Tile, class string) ([]domain.Court, error)
	listByTilesFn        func(ctx context.Context, addrs []tiles.Tile, status domain.CourtStatus) ([]domain.Court, error)
	listByClassStatusFn  func(ctx context.Context, class string, status domain.CourtStatus) ([]domain.Court, error)
	updateVerificationFn func(ctx context.Context, c *domain.Court) error
	setStatusFn          func(ctx context.Context, id string, status domain.CourtStatus) error
}

func (m *mockCourtRepo) Create(ctx context.Context, c *domain.Court) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	return "court-1", nil
}

func (m *mockCourtRepo) GetByID(ctx context.Context, id string) (*domain.Court, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCourtRepo) ListByTileClass(ctx context.Context, addr tiles.Tile, class string) ([]domain.Court, error) {
	if m.listByTileClassFn != nil {
		return m.listByTileClassFn(ctx, addr, class)
	}
	return nil, nil
}

func (m *mockCourtRepo) ListByTiles(ctx context.Context, addrs []tiles.Tile, status domain.CourtStatus) ([]domain.Court, error) {
	if m.listByTilesFn != nil {
		return m.listByTilesFn(ctx, addrs, status)
	}
	return nil, nil
}

func (m *mockCourtRepo) ListByClassStatus(ctx context.Context, class string, status domain.CourtStatus) ([]domain.Court, error) {
	if m.listByClassStatusFn != nil {
		return m.listByClassStatusFn(ctx, class, status)
	}
	return nil, nil
}

func (m *mockCourtRepo) UpdateVerification(ctx context.Context, c *domain.Court) error {
	if m.updateVerificationFn != nil {
		return m.updateVerificationFn(ctx, c)
	}
	return nil
}

func (m *mockCourtRepo) SetStatus(ctx context.Context, id string, status domain.CourtStatus) error {
	if m.setStatusFn != nil {
		return m.setStatusFn(ctx, id, status)
	}
	return nil
}

// --- Mock FeedbackRepository ---

type mockFeedbackRepo struct {
	insertFn            func(ctx context.Context, f *domain.FeedbackSubmission) (bool, error)
	countsByDetectionFn func(ctx context.Context, detectionID string) (domain.FeedbackCounts, error)
	countByUserFn       func(ctx context.Context, userID string) (int, error)
	linkCourtFn         func(ctx context.Context, detectionID, courtID string) error
}

func (m *mockFeedbackRepo) Insert(ctx context.Context, f *domain.FeedbackSubmission) (bool, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, f)
	}
	return true, nil
}

func (m *mockFeedbackRepo) CountsByDetection(ctx context.Context, detectionID string) (domain.FeedbackCounts, error) {
	if m.countsByDetectionFn != nil {
		return m.countsByDetectionFn(ctx, detectionID)
	}
	return domain.FeedbackCounts{}, nil
}

func (m *mockFeedbackRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	if m.countByUserFn != nil {
		return m.countByUserFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockFeedbackRepo) LinkCourt(ctx context.Context, detectionID, courtID string) error {
	if m.linkCourtFn != nil {
		return m.linkCourtFn(ctx, detectionID, courtID)
	}
	return nil
}

// --- Mock ScanRepository ---

type mockScanRepo struct {
	createFn   func(ctx context.Context, s *domain.Scan) (string, error)
	addTilesFn func(ctx context.Context, scanID string, tileIDs []string) error
	listFn     func(ctx context.Context) ([]domain.Scan, error)
}

func (m *mockScanRepo) Create(ctx context.Context, s *domain.Scan) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return "scan-1", nil
}

func (m *mockScanRepo) AddTiles(ctx context.Context, scanID string, tileIDs []string) error {
	if m.addTilesFn != nil {
		return m.addTilesFn(ctx, scanID, tileIDs)
	}
	return nil
}

func (m *mockScanRepo) List(ctx context.Context) ([]domain.Scan, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// --- Mock CacheService ---

type mockCache struct {
	getFn    func(ctx context.Context, key string) ([]byte, error)
	setFn    func(ctx context.Context, key string, value []byte, ttlSeconds int) error
	deleteFn func(ctx context.Context, key string) error
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttlSeconds)
	}
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	publishFeedbackFn func(ctx context.Context, f *domain.FeedbackSubmission) error
	publishVerifiedFn func(ctx context.Context, c *domain.Court) error
}

func (m *mockPublisher) PublishFeedback(ctx context.Context, f *domain.FeedbackSubmission) error {
	if m.publishFeedbackFn != nil {
		return m.publishFeedbackFn(ctx, f)
	}
	return nil
}

func (m *mockPublisher) PublishCourtVerified(ctx context.Context, c *domain.Court) error {
	if m.publishVerifiedFn != nil {
		return m.publishVerifiedFn(ctx, c)
	}
	return nil
}

// --- Mock TileImageProvider ---

type mockTileImages struct {
	fetchTileFn func(ctx context.Context, addr tiles.Tile) ([]byte, error)
	tileURLFn   func(addr tiles.Tile) string
}

func (m *mockTileImages) FetchTile(ctx context.Context, addr tiles.Tile) ([]byte, error) {
	if m.fetchTileFn != nil {
		return m.fetchTileFn(ctx, addr)
	}
	return nil, nil
}

func (m *mockTileImages) TileURL(addr tiles.Tile) string {
	if m.tileURLFn != nil {
		return m.tileURLFn(addr)
	}
	return "https://tiles.example/" + addr.String()
}

// --- Mock InferenceProvider ---

type mockInference struct {
	detectFn func(ctx context.Context, imageURL string) (*domain.InferenceResult, error)
}

func (m *mockInference) Detect(ctx context.Context, imageURL string) (*domain.InferenceResult, error) {
	if m.detectFn != nil {
		return m.detectFn(ctx, imageURL)
	}
	return &domain.InferenceResult{}, nil
}

func (m *mockInference) Model() (string, string) { return "court-detection", "9" }

// --- Mock Geocoder ---

type mockGeocoder struct {
	reverseFn func(ctx context.Context, lat, lon float64) (string, error)
}

func (m *mockGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	if m.reverseFn != nil {
		return m.reverseFn(ctx, lat, lon)
	}
	return "", nil
}
