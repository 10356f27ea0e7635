// Package metrics exposes Prometheus counters for page actions and backend calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signup"

// Recorder owns the front end's collectors and the registry they are exposed from.
// It satisfies backend.Observer and viewstate.ActionRecorder.
type Recorder struct {
	registry *prometheus.Registry

	actions        *prometheus.CounterVec
	backendCalls   *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
	visitors       prometheus.Gauge
}

// NewRecorder creates a Recorder on a fresh registry with the Go runtime collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "page",
			Name:      "actions_total",
			Help:      "Number of finished page actions grouped by action and result.",
		}, []string{"action", "result"}),
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "calls_total",
			Help:      "Number of backend round trips grouped by endpoint and status code (0 for transport failures).",
		}, []string{"endpoint", "code"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "call_duration_seconds",
			Help:      "Backend round trip latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		visitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "page",
			Name:      "visitors",
			Help:      "Number of live visitor sessions.",
		}),
	}
	r.registry.MustRegister(
		r.actions,
		r.backendCalls,
		r.backendLatency,
		r.visitors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// RecordAction counts one finished page action.
func (r *Recorder) RecordAction(action, result string) {
	r.actions.WithLabelValues(action, result).Inc()
}

// ObserveBackendCall counts one backend round trip and records its latency.
func (r *Recorder) ObserveBackendCall(endpoint string, status int, d time.Duration) {
	r.backendCalls.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	r.backendLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// SetVisitors records the live visitor session count.
func (r *Recorder) SetVisitors(n int) {
	r.visitors.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
