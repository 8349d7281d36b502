package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subtrack",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "subtrack",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// Lifecycle processor metrics
	processorRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "subtrack",
			Subsystem: "processor",
			Name:      "runs_total",
			Help:      "Total number of processing runs",
		},
	)

	processorSubscriptionsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "subtrack",
			Subsystem: "processor",
			Name:      "subscriptions_processed_total",
			Help:      "Total number of subscriptions processed",
		},
	)

	processorCyclesAdvanced = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "subtrack",
			Subsystem: "processor",
			Name:      "billing_cycles_advanced_total",
			Help:      "Total number of billing cycles advanced",
		},
	)

	processorFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "subtrack",
			Subsystem: "processor",
			Name:      "subscription_failures_total",
			Help:      "Total number of subscriptions skipped due to errors",
		},
	)

	// Reminder metrics
	remindersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "subtrack",
			Subsystem: "reminders",
			Name:      "instructions_total",
			Help:      "Total reminder instructions emitted by reconciliation",
		},
		[]string{"type", "action"},
	)
)

// RecordProcessorRun records the outcome of one processing run
func RecordProcessorRun(processed, cyclesAdvanced int) {
	processorRunsTotal.Inc()
	processorSubscriptionsProcessed.Add(float64(processed))
	processorCyclesAdvanced.Add(float64(cyclesAdvanced))
}

// RecordProcessorFailure records one skipped subscription
func RecordProcessorFailure() {
	processorFailuresTotal.Inc()
}

// RecordReminder records one reminder instruction (created, updated, cancelled)
func RecordReminder(reminderType, action string) {
	remindersTotal.WithLabelValues(reminderType, action).Inc()
}

// Handler returns the prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware instruments HTTP requests with request count and duration
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		status := strconv.Itoa(ww.status)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
