package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AnalysisMetrics records landmark analysis outcomes.
type AnalysisMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewAnalysisMetrics registers the analysis metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewAnalysisMetrics(reg prometheus.Registerer) *AnalysisMetrics {
	if reg == nil {
		return &AnalysisMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "landmark_analysis_duration_seconds",
		Help:    "Duration of landmark analysis runs in seconds.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "landmark_analysis_total",
		Help: "Landmark analysis runs by outcome.",
	}, []string{"outcome"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "landmark_analysis_failures_total",
		Help: "Failed landmark analysis runs by pipeline step.",
	}, []string{"step"})
	reg.MustRegister(duration, outcomes, failures)
	return &AnalysisMetrics{
		duration: duration,
		outcomes: outcomes,
		failures: failures,
	}
}

// ObserveDuration records how long a run with the given outcome took.
func (m *AnalysisMetrics) ObserveDuration(outcome string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(outcome)).Observe(d.Seconds())
}

// IncOutcome counts a finished run.
func (m *AnalysisMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncFailure counts a failed run against the step that failed.
func (m *AnalysisMetrics) IncFailure(step string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(step)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
