package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Pipeline freshness
	MetricScanLag         = "scan.tile_age_seconds"
	MetricFeedbackLatency = "verification.feedback_latency"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricCourtsVerified = "business.courts_verified"
	MetricScansCompleted = "business.scans_completed"
)
