// Package metrics provides Prometheus instrumentation for Tally.
package metrics

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route pattern and status class.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route pattern, and status class.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route pattern.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tally",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// EstimatesTotal counts computed estimates by where they were requested.
	EstimatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "estimates_total",
			Help:      "Total estimates computed by source.",
		},
		[]string{"source"},
	)

	// ParameterEditsTotal counts accepted and rejected edits per field.
	ParameterEditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "parameter_edits_total",
			Help:      "Total parameter edits by field and result.",
		},
		[]string{"field", "result"},
	)

	// SharesTotal counts share link requests by result.
	SharesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "shares_total",
			Help:      "Total share link requests by result.",
		},
		[]string{"result"},
	)

	// ShareViewsTotal counts resolved short links.
	ShareViewsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tally",
		Name:      "share_views_total",
		Help:      "Total short link visits.",
	})

	// SessionsCreatedTotal counts calculator sessions opened through the API.
	SessionsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tally",
		Name:      "sessions_created_total",
		Help:      "Total calculator sessions created.",
	})

	// UsageEventsTotal counts usage events handled by the worker.
	UsageEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "usage_events_total",
			Help:      "Total usage events processed by kind and result.",
		},
		[]string{"kind", "result"},
	)

	// BusEventsDroppedTotal counts events the channel bus dropped on a full
	// subscriber buffer.
	BusEventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tally",
			Name:      "bus_events_dropped_total",
			Help:      "Total events dropped because a subscriber buffer was full.",
		},
		[]string{"topic"},
	)

	// WorkerSubscriptions tracks the usage worker's active subscriptions.
	WorkerSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tally", Name: "worker_subscriptions",
		Help: "Number of active usage worker subscriptions.",
	})

	// EstimatedHoursSaved observes the headline hours figure of each estimate.
	EstimatedHoursSaved = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tally",
		Name:      "estimated_hours_saved",
		Help:      "Distribution of estimated annual hours saved.",
		Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
	})

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tally", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tally", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tally", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		EstimatesTotal,
		ParameterEditsTotal,
		SharesTotal,
		ShareViewsTotal,
		SessionsCreatedTotal,
		UsageEventsTotal,
		BusEventsDroppedTotal,
		WorkerSubscriptions,
		EstimatedHoursSaved,
		DBOpenConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// ObserveEstimate records one computed estimate.
func ObserveEstimate(source string, hoursSaved float64) {
	EstimatesTotal.WithLabelValues(source).Inc()
	EstimatedHoursSaved.Observe(hoursSaved)
}

// ObserveEdit records a parameter edit. ok is false when the value was rejected.
func ObserveEdit(field string, ok bool) {
	result := "accepted"
	if !ok {
		result = "rejected"
	}
	ParameterEditsTotal.WithLabelValues(field, result).Inc()
}

// StartDBStatsCollector periodically samples sql.DBStats and the goroutine
// count into gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware records request count and latency keyed by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// Route pattern, not the raw path, keeps label cardinality bounded.
		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(r.Method, path, statusBucket(status)).Inc()
	})
}

// Handler returns the Prometheus metrics HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusBucket groups HTTP status codes into classes (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	if code < 100 || code > 599 {
		return "5xx"
	}
	return strconv.Itoa(code/100) + "xx"
}
