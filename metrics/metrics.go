package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	detectTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hivewallet",
		Name:      "detect_total",
		Help:      "Credential derivation detections by outcome.",
	}, []string{"result"})

	broadcastTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hivewallet",
		Name:      "broadcast_total",
		Help:      "Broadcast dispatches by signing backend and outcome.",
	}, []string{"backend", "outcome"})

	broadcastSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hivewallet",
		Name:      "broadcast_seconds",
		Help:      "Time spent in a signing backend.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 120},
	}, []string{"backend"})
)

func init() {
	registry.MustRegister(detectTotal, broadcastTotal, broadcastSeconds)
}

func ObserveDetect(result string) {
	detectTotal.WithLabelValues(result).Inc()
}

// ObserveBroadcast counts one dispatch. outcome is "ok" or an error kind.
func ObserveBroadcast(backend, outcome string, seconds float64) {
	broadcastTotal.WithLabelValues(backend, outcome).Inc()
	if seconds > 0 {
		broadcastSeconds.WithLabelValues(backend).Observe(seconds)
	}
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func DetectCounter(result string) prometheus.Counter {
	return detectTotal.WithLabelValues(result)
}

func BroadcastCounter(backend, outcome string) prometheus.Counter {
	return broadcastTotal.WithLabelValues(backend, outcome)
}
