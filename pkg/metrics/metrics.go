// Package metrics provides the Prometheus metrics exported by the analysis
// service.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Kind values used for the analysis label.
const (
	KindPlain    = "plain"
	KindFiltered = "filtered"
)

type IMetrics interface {
	ObserveAnalysis(kind string, status string, duration time.Duration)
	ObserveDetections(labels []string)
	ObserveRecommendation(recommendation string)
	SetStoredAnalyses(n int)
	Registry() *prometheus.Registry
}

type Metrics struct {
	AnalysisTotal        *prometheus.CounterVec
	AnalysisDuration     *prometheus.HistogramVec
	DetectionsTotal      *prometheus.CounterVec
	RecommendationsTotal *prometheus.CounterVec
	StoredAnalyses       prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the metrics and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()

	collectors := []prometheus.Collector{
		m.AnalysisTotal,
		m.AnalysisDuration,
		m.DetectionsTotal,
		m.RecommendationsTotal,
		m.StoredAnalyses,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register analysis metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) initMetrics() {
	m.AnalysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siteguard_analyses_total",
			Help: "Total number of image analyses partitioned by kind and outcome.",
		},
		[]string{"kind", "status"},
	)

	m.AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siteguard_analysis_duration_seconds",
			Help:    "Time taken to decode, detect, render and store one image.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"kind"},
	)

	m.DetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siteguard_detections_total",
			Help: "Detections above the confidence threshold partitioned by label.",
		},
		[]string{"label"},
	)

	m.RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siteguard_recommendations_total",
			Help: "Compliance recommendations issued.",
		},
		[]string{"recommendation"},
	)

	m.StoredAnalyses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "siteguard_stored_analyses",
			Help: "Number of analyses held in the in-memory result store.",
		},
	)
}

func (m *Metrics) ObserveAnalysis(kind string, status string, duration time.Duration) {
	m.AnalysisTotal.WithLabelValues(kind, status).Inc()
	m.AnalysisDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *Metrics) ObserveDetections(labels []string) {
	for _, l := range labels {
		m.DetectionsTotal.WithLabelValues(l).Inc()
	}
}

func (m *Metrics) ObserveRecommendation(recommendation string) {
	m.RecommendationsTotal.WithLabelValues(recommendation).Inc()
}

func (m *Metrics) SetStoredAnalyses(n int) {
	m.StoredAnalyses.Set(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
