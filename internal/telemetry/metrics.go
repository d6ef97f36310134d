package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attacklab_requests_total",
		Help: "Prediction requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	attacksApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attacklab_attacks_applied_total",
		Help: "Transform steps dispatched by the perturbation pipeline.",
	}, []string{"attack"})

	inferenceSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "attacklab_inference_seconds",
		Help:    "Wall time of a single classifier forward pass.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(requests, attacksApplied, inferenceSeconds)
}

func ObserveRequest(endpoint, outcome string) {
	requests.WithLabelValues(endpoint, outcome).Inc()
}

func ObserveAttack(attack string) {
	attacksApplied.WithLabelValues(attack).Inc()
}

func ObserveInference(d time.Duration) {
	inferenceSeconds.Observe(d.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
