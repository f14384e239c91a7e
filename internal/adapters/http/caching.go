package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on GET requests
		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		// Default cache times by endpoint pattern
		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0" // GraphQL varies wildly

		case strings.HasPrefix(path, "/v1/courts/nearby"):
			ttl = "public, max-age=60" // 1 min for location queries

		case strings.Contains(path, "/composite"):
			ttl = "public, max-age=3600" // Composites are expensive and stable

		case strings.HasPrefix(path, "/v1/courts"):
			ttl = "public, max-age=60" // Viewport and single-court lookups

		case strings.HasPrefix(path, "/v1/detections"):
			ttl = "no-store" // Review queue is per-user and mutates

		case strings.HasPrefix(path, "/v1/feedback"):
			ttl = "no-store" // Progress counters change on every submission

		case path == "/v1/catalog/stats":
			ttl = "public, max-age=60" // Catalog stats: 1 min

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300" // 5 min default for API endpoints
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
