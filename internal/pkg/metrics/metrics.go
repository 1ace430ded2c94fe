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
		Namespace: "l8s2",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "l8s2",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Overlap batch metrics
	PairsConsidered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "l8s2",
		Subsystem: "overlap",
		Name:      "pairs_considered_total",
		Help:      "Path/row and tile pairs examined",
	})

	PairsZoneRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "l8s2",
		Subsystem: "overlap",
		Name:      "pairs_zone_rejected_total",
		Help:      "Pairs discarded by the UTM zone filter",
	})

	PairsIntersected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "l8s2",
		Subsystem: "overlap",
		Name:      "pairs_intersected_total",
		Help:      "Pairs projected and clipped",
	})

	RecordsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "l8s2",
		Subsystem: "overlap",
		Name:      "records_emitted_total",
		Help:      "Overlap records above the significance threshold",
	})

	NightRowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "l8s2",
		Subsystem: "overlap",
		Name:      "night_rows_skipped_total",
		Help:      "Path/rows skipped because the row is never sunlit",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "l8s2",
		Subsystem: "overlap",
		Name:      "run_duration_seconds",
		Help:      "Duration of a full matching run",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})

	PublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "l8s2",
		Subsystem: "overlap",
		Name:      "publish_errors_total",
		Help:      "Failures writing results to a sink",
	}, []string{"sink"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "l8s2",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "l8s2",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "l8s2",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "l8s2",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "l8s2",
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

// WriteTextfile dumps the default registry to path in the text exposition
// format, for the node_exporter textfile collector. Batch runs exit before
// anything could scrape them.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// UpdateDBPoolMetrics updates database pool metrics from pgx pool stats.
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
