package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtscan",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "courtscan",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "courtscan",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Catalog-specific metrics
	DetectionsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtscan",
		Subsystem: "catalog",
		Name:      "detections_ingested_total",
		Help:      "Total detections stored from inference runs",
	}, []string{"class"})

	CourtsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtscan",
		Subsystem: "catalog",
		Name:      "courts_created_total",
		Help:      "Total new courts opened by deduplication",
	}, []string{"class"})

	CourtsVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtscan",
		Subsystem: "catalog",
		Name:      "courts_verified_total",
		Help:      "Total courts promoted to verified by crowd feedback",
	}, []string{"class"})

	FeedbackSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtscan",
		Subsystem: "catalog",
		Name:      "feedback_submissions_total",
		Help:      "Total feedback submissions accepted",
	}, []string{"response"})

	TilesScanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courtscan",
		Subsystem: "scan",
		Name:      "tiles_scanned_total",
		Help:      "Total tiles run through the detection pipeline",
	})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "courtscan",
		Subsystem: "scan",
		Name:      "duration_seconds",
		Help:      "Duration of full area scans",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
	})

	InferenceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courtscan",
		Subsystem: "scan",
		Name:      "inference_errors_total",
		Help:      "Total inference provider errors",
	})

	CompositesBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courtscan",
		Subsystem: "composite",
		Name:      "built_total",
		Help:      "Total tile composites rendered",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "courtscan",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtscan",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "courtscan",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "courtscan",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "courtscan",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "courtscan",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
// Takes an interface so the metrics package stays free of pgx imports.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
