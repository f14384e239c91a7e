package ports

import (
	"context"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/pkg/tiles"
)

// TileImageProvider fetches raster tile images from the map provider.
type TileImageProvider interface {
	// FetchTile returns the raw image bytes for a tile.
	FetchTile(ctx context.Context, addr tiles.Tile) ([]byte, error)
	// TileURL returns the provider URL for a tile, for handing to the
	// inference provider.
	TileURL(addr tiles.Tile) string
}

// InferenceProvider runs object detection against a tile image.
type InferenceProvider interface {
	Detect(ctx context.Context, imageURL string) (*domain.InferenceResult, error)
	Model() (name, version string)
}

// Geocoder resolves coordinates to a human-readable place name.
// Implementations degrade to a "lat, lon" string rather than failing.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishFeedback(ctx context.Context, f *domain.FeedbackSubmission) error
	PublishCourtVerified(ctx context.Context, c *domain.Court) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeFeedback(ctx context.Context, handler func(ctx context.Context, f *domain.FeedbackSubmission) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
