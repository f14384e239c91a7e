package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/pkg/metrics"
	"github.com/adierro/courtscan/internal/pkg/tiles"
)

// CatalogStats holds row counts for the whole catalog.
type CatalogStats struct {
	Tiles       int    `json:"tiles"`
	Detections  int    `json:"detections"`
	Courts      int    `json:"courts"`
	Verified    int    `json:"verified"`
	Feedback    int    `json:"feedback"`
	Scans       int    `json:"scans"`
	LastScanned string `json:"last_scanned,omitempty"`
}

// CatalogStatsHandler returns row counts from the catalog tables.
func CatalogStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats CatalogStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM tiles),
				(SELECT count(*) FROM detections),
				(SELECT count(*) FROM courts),
				(SELECT count(*) FROM courts WHERE status = 'verified'),
				(SELECT count(*) FROM feedback_submissions),
				(SELECT count(*) FROM scans),
				COALESCE((SELECT max(created_at)::text FROM scans), '')
		`)
		if err := row.Scan(&stats.Tiles, &stats.Detections, &stats.Courts,
			&stats.Verified, &stats.Feedback, &stats.Scans, &stats.LastScanned); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}

// ViewportCourtsHandler returns the courts inside a map viewport as GeoJSON.
// Query: min_lat, min_lng, max_lat, max_lng, optional zoom and status.
func ViewportCourtsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		viewport := tiles.ViewportBBox{
			MinLat: c.QueryFloat("min_lat", 0),
			MinLng: c.QueryFloat("min_lng", 0),
			MaxLat: c.QueryFloat("max_lat", 0),
			MaxLng: c.QueryFloat("max_lng", 0),
		}
		if viewport.MinLat == 0 && viewport.MaxLat == 0 && viewport.MinLng == 0 && viewport.MaxLng == 0 {
			return errBadRequest(c, "min_lat, min_lng, max_lat and max_lng are required")
		}

		zoom := c.QueryInt("zoom", 0)
		status, err := parseStatus(c.Query("status"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		fc, err := deps.Courts.ListByViewport(c.Context(), viewport, zoom, status)
		if err != nil {
			return serviceError(c, err)
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(fc)
	}
}

// NearbyCourtsHandler returns courts near a point, closest first.
func NearbyCourtsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		if lat == 0 && lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}

		radius := c.QueryFloat("radius", 0)
		if radius > 10000 {
			return errBadRequest(c, "radius must be at most 10000 meters")
		}
		class := c.Query("class")
		limit := c.QueryInt("limit", 20)

		courts, err := deps.Courts.FindNearby(c.Context(), lat, lon, class, radius, limit)
		if err != nil {
			return serviceError(c, err)
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(courts)
	}
}

// GetCourtHandler returns a single court.
func GetCourtHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		court, err := deps.Courts.GetByID(c.Context(), c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(court)
	}
}

// RejectCourtHandler marks a court as rejected. Admin-only escape hatch for
// false positives the crowd keeps approving.
func RejectCourtHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Courts.Reject(c.Context(), c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"status": "rejected"})
	}
}

// CompositeHandler renders the multi-tile close-up for a court.
func CompositeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		court, err := deps.Courts.GetByID(c.Context(), c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}

		result, err := deps.Compositor.Composite(c.Context(), court.Tile, court.BBox)
		if err != nil {
			return errInternal(c, err.Error())
		}
		metrics.CompositesBuilt.Inc()

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(result)
	}
}

// GetDetectionHandler returns a single detection.
func GetDetectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		detection, err := deps.Feedback.Detection(c.Context(), c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(detection)
	}
}

// NextDetectionHandler returns the next detection for a user to review.
// Query: user_id (required), skip (comma-separated detection ids).
func NextDetectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if userID == "" {
			return errBadRequest(c, "user_id is required")
		}

		var skipIDs []string
		if skip := c.Query("skip"); skip != "" {
			skipIDs = strings.Split(skip, ",")
		}

		next, err := deps.Feedback.NextForReview(c.Context(), userID, skipIDs)
		if err != nil {
			return serviceError(c, err)
		}
		if next == nil {
			return c.JSON(fiber.Map{"done": true})
		}
		return c.JSON(fiber.Map{"done": false, "detection": next})
	}
}

// feedbackRequest is the POST /v1/feedback body.
type feedbackRequest struct {
	UserID      string `json:"user_id"`
	DetectionID string `json:"detection_id"`
	Response    string `json:"response"`
}

// SubmitFeedbackHandler records a user's verdict on a detection.
func SubmitFeedbackHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req feedbackRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.DetectionID == "" {
			return errBadRequest(c, "detection_id is required")
		}

		submission, created, err := deps.Feedback.Submit(
			c.Context(), req.UserID, req.DetectionID, domain.FeedbackResponse(req.Response))
		if err != nil {
			return serviceError(c, err)
		}

		if !created {
			// Idempotent repeat: not an error, but flagged for the client.
			return c.JSON(fiber.Map{"status": "duplicate", "feedback": submission})
		}
		metrics.FeedbackSubmissions.WithLabelValues(string(submission.Response)).Inc()
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "created", "feedback": submission})
	}
}

// FeedbackStatsHandler returns a user's review progress.
func FeedbackStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if userID == "" {
			return errBadRequest(c, "user_id is required")
		}

		stats, err := deps.Feedback.Stats(c.Context(), userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(stats)
	}
}

// scanRequest is the POST /v1/scans body.
type scanRequest struct {
	UserID string  `json:"user_id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Radius int     `json:"radius"`
}

// StartScanHandler runs an area scan around a point. The scan is
// synchronous: the response carries the full result summary.
func StartScanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req scanRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.UserID == "" {
			return errBadRequest(c, "user_id is required")
		}

		result, err := deps.Scans.Run(c.Context(), req.UserID,
			domain.GeoPoint{Lat: req.Lat, Lon: req.Lon}, req.Radius)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	}
}

// ListScansHandler returns the scan history.
func ListScansHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scans, err := deps.Scans.List(c.Context())
		if err != nil {
			return serviceError(c, err)
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		total := len(scans)
		if offset >= total {
			scans = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			scans = scans[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: scans, Pagination: pg})
	}
}

func parseStatus(s string) (domain.CourtStatus, error) {
	switch domain.CourtStatus(s) {
	case "", domain.StatusPending, domain.StatusVerified, domain.StatusRejected:
		return domain.CourtStatus(s), nil
	default:
		return "", errors.New("status must be pending, verified or rejected")
	}
}

// serviceError maps domain sentinel errors onto HTTP responses.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	default:
		return errInternal(c, err.Error())
	}
}
