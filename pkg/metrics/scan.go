package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics records checkpoint scan verification outcomes.
type ScanMetrics struct {
	outcomes *prometheus.CounterVec
	distance prometheus.Histogram
}

// NewScanMetrics registers the scan metrics on the provided registerer.
func NewScanMetrics(reg prometheus.Registerer) *ScanMetrics {
	if reg == nil {
		return &ScanMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkpoint_scan_total",
		Help: "Checkpoint scan attempts by verification outcome.",
	}, []string{"outcome"})
	distance := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkpoint_scan_distance_meters",
		Help:    "Distance between scan position and checkpoint for accepted scans.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})
	reg.MustRegister(outcomes, distance)
	return &ScanMetrics{
		outcomes: outcomes,
		distance: distance,
	}
}

// IncOutcome increments the counter for the given verification outcome.
func (s *ScanMetrics) IncOutcome(outcome string) {
	if s == nil || s.outcomes == nil {
		return
	}
	s.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveDistance records the verified scan distance in meters.
func (s *ScanMetrics) ObserveDistance(meters float64) {
	if s == nil || s.distance == nil {
		return
	}
	s.distance.Observe(meters)
}
