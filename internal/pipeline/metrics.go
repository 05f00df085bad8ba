package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for ingestion. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Results           *prometheus.CounterVec
	StageFailures     *prometheus.CounterVec
	ToolsExtracted    prometheus.Counter
	Duration          prometheus.Histogram
	AnalyzerFallbacks *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reposcope_ingest_results_total",
			Help: "Repositories processed, by outcome",
		}, []string{"outcome"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reposcope_ingest_stage_failures_total",
			Help: "Pipeline failures, by the step that failed",
		}, []string{"stage"}),
		ToolsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reposcope_tools_extracted_total",
			Help: "Tools persisted by the pipeline",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reposcope_ingest_seconds",
			Help:    "Time to process one repository",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		AnalyzerFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reposcope_analyzer_fallbacks_total",
			Help: "Remote analysis calls answered by the offline analyzer",
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.Results, m.StageFailures, m.ToolsExtracted, m.Duration, m.AnalyzerFallbacks)
	}
	return m
}

// Fallbacks returns the analyzer fallback counter, or nil.
func (m *Metrics) Fallbacks() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.AnalyzerFallbacks
}

func (m *Metrics) observe(r Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	switch {
	case r.Skipped:
		m.Results.WithLabelValues("skipped").Inc()
		return
	case r.Success:
		m.Results.WithLabelValues("success").Inc()
		m.ToolsExtracted.Add(float64(r.ToolCount))
	default:
		m.Results.WithLabelValues("failed").Inc()
		m.StageFailures.WithLabelValues(string(r.FailedStep)).Inc()
	}
	m.Duration.Observe(elapsed.Seconds())
}
