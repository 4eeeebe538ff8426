package keystore

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Operation results.
const (
	resultOK    = "ok"
	resultMiss  = "miss"
	resultError = "error"
)

// Metrics holds Prometheus metrics for key store operations.
type Metrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	breakerState      *prometheus.GaugeVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the process-wide key store metrics, registered on the
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
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ingressmonitor",
				Subsystem: "keystore",
				Name:      "operations_total",
				Help:      "Challenge key store operations by backend, operation and result",
			},
			[]string{"backend", "operation", "result"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ingressmonitor",
				Subsystem: "keystore",
				Name:      "operation_duration_seconds",
				Help:      "Duration of remote key store operations in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"backend", "operation"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ingressmonitor",
				Subsystem: "keystore",
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state of the key store backend (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
	}
}

func (m *Metrics) recordOperation(backend, operation, result string) {
	m.operations.WithLabelValues(backend, operation, result).Inc()
}
