package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mikey/threat-analyzer/internal/core"
)

// Recorder exposes analysis and request metrics on its own registry
type Recorder struct {
	registry *prometheus.Registry

	analyses *prometheus.CounterVec
	duration *prometheus.HistogramVec
	scores   *prometheus.HistogramVec
	requests *prometheus.CounterVec
	stored   *prometheus.CounterVec
}

// NewRecorder creates a recorder whose metric names carry the given namespace
func NewRecorder(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of analyses by kind and label",
		}, []string{"kind", "label"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Analysis duration",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"kind"}),
		scores: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_score",
			Help:      "Distribution of final scores",
			Buckets:   []float64{0, 1, 3, 6, 10, 15, 20},
		}, []string{"kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total requests",
		}, []string{"endpoint", "status"}),
		stored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_stored_total",
			Help:      "Verdict store writes by result",
		}, []string{"result"}),
	}

	r.registry.MustRegister(
		r.analyses, r.duration, r.scores, r.requests, r.stored,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveAnalysis implements core.MetricsRecorder
func (r *Recorder) ObserveAnalysis(kind core.Kind, label string, score float64, elapsed time.Duration) {
	r.analyses.WithLabelValues(string(kind), label).Inc()
	r.duration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	r.scores.WithLabelValues(string(kind)).Observe(score)
}

// ObserveStore counts verdict store writes
func (r *Recorder) ObserveStore(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	r.stored.WithLabelValues(result).Inc()
}

// ObserveRequest counts a transport request
func (r *Recorder) ObserveRequest(endpoint, status string) {
	r.requests.WithLabelValues(endpoint, status).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
