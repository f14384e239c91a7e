package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/adierro/courtscan/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Swagger UI + raw OpenAPI spec
	SetupDocs(app)

	// REST API v1, 15s per-request timeout; scans run longer.
	v1 := app.Group("/v1")
	v1.Get("/courts", timeout.NewWithContext(ViewportCourtsHandler(deps), 15*time.Second))
	v1.Get("/courts/nearby", timeout.NewWithContext(NearbyCourtsHandler(deps), 15*time.Second))
	v1.Get("/courts/:id", timeout.NewWithContext(GetCourtHandler(deps), 15*time.Second))
	v1.Get("/courts/:id/composite", timeout.NewWithContext(CompositeHandler(deps), 30*time.Second))
	v1.Post("/courts/:id/reject", timeout.NewWithContext(RejectCourtHandler(deps), 15*time.Second))
	v1.Get("/detections/next", timeout.NewWithContext(NextDetectionHandler(deps), 15*time.Second))
	v1.Get("/detections/:id", timeout.NewWithContext(GetDetectionHandler(deps), 15*time.Second))
	v1.Post("/feedback", timeout.NewWithContext(SubmitFeedbackHandler(deps), 15*time.Second))
	v1.Get("/feedback/stats", timeout.NewWithContext(FeedbackStatsHandler(deps), 15*time.Second))
	v1.Post("/scans", timeout.NewWithContext(StartScanHandler(deps), 5*time.Minute))
	v1.Get("/scans", timeout.NewWithContext(ListScansHandler(deps), 15*time.Second))
	v1.Get("/catalog/stats", timeout.NewWithContext(CatalogStatsHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
