package domain

import (
	"time"

	"github.com/adierro/courtscan/internal/pkg/bbox"
	"github.com/adierro/courtscan/internal/pkg/tiles"
)

// CourtStatus is the crowd-verification lifecycle state of a catalog court.
type CourtStatus string

const (
	StatusPending  CourtStatus = "pending"
	StatusVerified CourtStatus = "verified"
	StatusRejected CourtStatus = "rejected"
)

// FeedbackResponse is a user's answer to "is this really a court?".
type FeedbackResponse string

const (
	ResponseYes    FeedbackResponse = "yes"
	ResponseNo     FeedbackResponse = "no"
	ResponseUnsure FeedbackResponse = "unsure"
)

// ValidResponse reports whether r is one of the accepted feedback answers.
func ValidResponse(r FeedbackResponse) bool {
	return r == ResponseYes || r == ResponseNo || r == ResponseUnsure
}

// TileRecord is a persisted satellite tile, keyed by its (z,x,y) address.
type TileRecord struct {
	ID             string     `json:"id"`
	Address        tiles.Tile `json:"address"`
	ReverseGeocode string     `json:"reverse_geocode,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Detection is one ML-model bounding box for one tile image. Detections are
// immutable once ingested; only the court linkage may change.
type Detection struct {
	ID          string         `json:"id"`
	TileID      string         `json:"tile_id"`
	Tile        tiles.Tile     `json:"tile"`
	Class       string         `json:"class"`
	Confidence  float64        `json:"confidence"`
	BBox        bbox.PixelBBox `json:"bbox"`
	Model       string         `json:"model"`
	Version     string         `json:"version"`
	DetectionID string         `json:"detection_id"` // provider-assigned id
	InferenceID string         `json:"inference_id,omitempty"`
	CourtID     string         `json:"court_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Court is the deduplicated real-world object one or more detections are
// believed to represent.
type Court struct {
	ID                    string         `json:"id"`
	Location              GeoPoint       `json:"location"`
	Class                 string         `json:"class"`
	Status                CourtStatus    `json:"status"`
	VerifiedAt            *time.Time     `json:"verified_at,omitempty"`
	SourceDetectionID     string         `json:"source_detection_id"`
	SourceModel           string         `json:"source_model,omitempty"`
	SourceVersion         string         `json:"source_version,omitempty"`
	SourceConfidence      float64        `json:"source_confidence"`
	TotalFeedbackCount    int            `json:"total_feedback_count"`
	PositiveFeedbackCount int            `json:"positive_feedback_count"`
	BBox                  bbox.PixelBBox `json:"bbox"`
	TileID                string         `json:"tile_id"`
	Tile                  tiles.Tile     `json:"tile"`
	Distance              *float64       `json:"distance,omitempty"` // computed field
	CreatedAt             time.Time      `json:"created_at"`
}

// FeedbackSubmission is one user's verdict on one detection. At most one
// exists per (user, detection); duplicates are idempotent no-ops.
type FeedbackSubmission struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	DetectionID string           `json:"detection_id"`
	Response    FeedbackResponse `json:"response"`
	TileID      string           `json:"tile_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// FeedbackCounts is the aggregated feedback for one detection.
type FeedbackCounts struct {
	Total    int `json:"total"`
	Positive int `json:"positive"`
}

// PositivePercentage returns positive/total, 0 when there is no feedback.
func (c FeedbackCounts) PositivePercentage() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Positive) / float64(c.Total)
}

// DedupMatch is the best existing-court match for a new detection.
type DedupMatch struct {
	CourtID string  `json:"court_id"`
	IoU     float64 `json:"iou"`
}

// Scan records one area-scan request: a center point expanded to a square
// grid of tiles that were fetched and run through inference.
type Scan struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Center     GeoPoint   `json:"center"`
	CenterTile tiles.Tile `json:"center_tile"`
	Radius     int        `json:"radius"`
	Model      string     `json:"model"`
	Version    string     `json:"version"`
	TileCount  int        `json:"tile_count"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Prediction is a single bounding box returned by the inference provider.
type Prediction struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Confidence  float64 `json:"confidence"`
	Class       string  `json:"class"`
	ClassID     int     `json:"class_id"`
	DetectionID string  `json:"detection_id"`
}

// InferenceResult is a full inference-provider response for one tile image.
type InferenceResult struct {
	InferenceID string       `json:"inference_id"`
	ImageWidth  float64      `json:"image_width"`
	ImageHeight float64      `json:"image_height"`
	Predictions []Prediction `json:"predictions"`
}
