package pinger

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const metricsNamespace = "ingressmonitor"

// Probe results.
const (
	resultSuccess  = "success"
	resultFailure  = "failure"
	resultRejected = "rejected"
)

// Metrics contains Prometheus metrics for probes.
type Metrics struct {
	pings         *prometheus.CounterVec
	hostUp        *prometheus.GaugeVec
	probeDuration *prometheus.HistogramVec
	rejections    prometheus.Counter
	ticks         prometheus.Counter
	targets       prometheus.Gauge
	allHealthy    prometheus.Gauge
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the process-wide probe metrics, registered on the
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
		pings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "ping_total",
				Help:      "Probes by host and result",
			},
			[]string{"host", "result"},
		),
		hostUp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "host_up",
				Help:      "Whether the last probe of a host succeeded (1) or failed (0)",
			},
			[]string{"host"},
		),
		probeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "probe_duration_seconds",
				Help:      "Duration of probes in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"result"},
		),
		rejections: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "probe_pool_rejections_total",
				Help:      "Probes rejected because the worker pool was full",
			},
		),
		ticks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "probe_ticks_total",
				Help:      "Scheduling ticks executed",
			},
		),
		targets: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "probe_targets",
				Help:      "Hosts in the current probe target set",
			},
		),
		allHealthy: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "all_healthy",
				Help:      "Whether every probed host is healthy",
			},
		),
	}
}

// RecordResult records the outcome of one probe.
func (m *Metrics) RecordResult(r PingResult) {
	result := resultFailure
	up := 0.0
	if r.Success {
		result = resultSuccess
		up = 1
	}
	m.pings.WithLabelValues(r.Host, result).Inc()
	m.hostUp.WithLabelValues(r.Host).Set(up)
	m.probeDuration.WithLabelValues(result).Observe(r.Duration.Seconds())
}

// RecordRejection records a probe the pool could not accept.
func (m *Metrics) RecordRejection(host string) {
	m.rejections.Inc()
	m.pings.WithLabelValues(host, resultRejected).Inc()
	m.hostUp.WithLabelValues(host).Set(0)
}
