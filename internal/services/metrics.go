package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Generation metrics
	GenerationRequests *prometheus.CounterVec
	GenerationLatency  prometheus.Histogram

	// Artifact lifecycle metrics
	ArtifactsStored *prometheus.CounterVec
	ArtifactsSwept  *prometheus.CounterVec
}

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	return &Metrics{
		// Generation requests by type and outcome (counter - only goes up)
		GenerationRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "viberehab_generation_requests_total",
			Help: "Total number of generation requests by type and outcome",
		}, []string{"type", "outcome"}), // outcome: "success", "fallback", "error"

		// Generation latency histogram
		GenerationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "viberehab_generation_duration_seconds",
			Help:    "Generation request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30}, // bounded by the 30s upstream timeout
		}),

		// Artifacts written by kind
		ArtifactsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "viberehab_artifacts_stored_total",
			Help: "Total number of artifacts persisted by kind",
		}, []string{"kind"}), // kind: "story", "schedule", "audio"

		// Artifacts removed by retention sweeps, by partition
		ArtifactsSwept: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "viberehab_artifacts_swept_total",
			Help: "Total number of artifacts deleted by retention sweeps",
		}, []string{"partition"}),
	}
}
