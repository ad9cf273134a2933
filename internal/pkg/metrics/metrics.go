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
		Namespace: "shapeline",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shapeline",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shapeline",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Codec metrics
	EncodesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shapeline",
		Subsystem: "codec",
		Name:      "encodes_total",
		Help:      "Total successful polyline encodes",
	})

	EncodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shapeline",
		Subsystem: "codec",
		Name:      "encode_errors_total",
		Help:      "Total failed polyline encodes",
	})

	EncodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shapeline",
		Subsystem: "codec",
		Name:      "encode_duration_seconds",
		Help:      "Polyline encode latency in seconds",
		Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	})

	EncodedPoints = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shapeline",
		Subsystem: "codec",
		Name:      "encoded_points_total",
		Help:      "Total coordinates passed through the encoder",
	})

	DecodesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shapeline",
		Subsystem: "codec",
		Name:      "decodes_total",
		Help:      "Total successful polyline decodes",
	})

	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shapeline",
		Subsystem: "codec",
		Name:      "decode_errors_total",
		Help:      "Total failed polyline decodes, malformed input included",
	})

	DecodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shapeline",
		Subsystem: "codec",
		Name:      "decode_duration_seconds",
		Help:      "Polyline decode latency in seconds",
		Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	})

	// Tracking metrics
	TrackPointsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shapeline",
		Subsystem: "track",
		Name:      "points_ingested_total",
		Help:      "Total tracker positions ingested",
	}, []string{"source"})

	ShapeEventsObserved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shapeline",
		Subsystem: "shape",
		Name:      "events_observed_total",
		Help:      "Shape lifecycle events consumed from the broker",
	}, []string{"type"})

	TracksClosed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shapeline",
		Subsystem: "track",
		Name:      "tracks_closed_total",
		Help:      "Total tracks compressed into shapes",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shapeline",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shapeline",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shapeline",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shapeline",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shapeline",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shapeline",
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

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool gauges from pgx pool stats.
// The stat is accepted through a local interface so this package does not
// import pgxpool.
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
