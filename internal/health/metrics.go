package health

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Metrics holds Prometheus metrics for the HTTP surface.
type Metrics struct {
	requests      *prometheus.CounterVec
	checkStatus   *prometheus.GaugeVec
	checkDuration *prometheus.HistogramVec
	challenges    *prometheus.CounterVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the process-wide metrics, registered on the
// controller-runtime registry.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = newMetrics(ctrlmetrics.Registry)
	})
	return metricsInstance
}

func newMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ingressmonitor",
				Subsystem: "health",
				Name:      "requests_total",
				Help:      "Requests served by endpoint and response code",
			},
			[]string{"endpoint", "code"},
		),
		checkStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ingressmonitor",
				Subsystem: "health",
				Name:      "check_status",
				Help:      "Current readiness check status (1=healthy, 0=unhealthy)",
			},
			[]string{"check", "type"},
		),
		checkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ingressmonitor",
				Subsystem: "health",
				Name:      "check_duration_seconds",
				Help:      "Duration of readiness checks",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"check"},
		),
		challenges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ingressmonitor",
				Subsystem: "health",
				Name:      "challenges_answered_total",
				Help:      "Challenges received by the ping responder by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) recordRequest(endpoint string, code int) {
	m.requests.WithLabelValues(endpoint, statusCodeLabel(code)).Inc()
}

func (m *Metrics) recordCheck(name string, depType DependencyType, healthy bool, seconds float64) {
	value := 0.0
	if healthy {
		value = 1
	}
	m.checkStatus.WithLabelValues(name, string(depType)).Set(value)
	m.checkDuration.WithLabelValues(name).Observe(seconds)
}

func (m *Metrics) recordChallenge(answered bool) {
	if answered {
		m.challenges.WithLabelValues("answered").Inc()
		return
	}
	m.challenges.WithLabelValues("missing").Inc()
}

func statusCodeLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
