package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Data freshness
	MetricTrackLatency = "track.point_latency"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricShapesStored  = "business.shapes_stored"
	MetricTracksClosed  = "business.tracks_closed"
	MetricBytesSavedPct = "business.encoding_size_reduction"
)
