package controller

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const metricsNamespace = "ingressmonitor"

// Metric label constants.
const (
	labelController = "controller"
	labelResult     = "result"
	labelKind       = "kind"
	labelOperation  = "operation"
	labelNamespace  = "namespace"
)

// Result constants for reconciliation metrics.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultRequeue = "requeue"
)

// ControllerMetrics contains Prometheus metrics for the reconciler. They are
// registered on the controller-runtime registry and served by the manager's
// metrics endpoint.
type ControllerMetrics struct {
	reconcileDuration *prometheus.HistogramVec
	reconcileTotal    *prometheus.CounterVec
	reconcileErrors   *prometheus.CounterVec
	writes            *prometheus.CounterVec
	shadows           *prometheus.GaugeVec
}

var (
	globalMetrics     *ControllerMetrics
	globalMetricsOnce sync.Once
)

// GetControllerMetrics returns the process-wide controller metrics.
func GetControllerMetrics() *ControllerMetrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = newControllerMetrics(ctrlmetrics.Registry)
	})
	return globalMetrics
}

func newControllerMetrics(registerer prometheus.Registerer) *ControllerMetrics {
	factory := promauto.With(registerer)
	return &ControllerMetrics{
		reconcileDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "reconcile_duration_seconds",
				Help:      "Duration of namespace reconciliations in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{labelController},
		),
		reconcileTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reconcile_total",
				Help:      "Total number of namespace reconciliations",
			},
			[]string{labelController, labelResult},
		),
		reconcileErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reconcile_errors_total",
				Help:      "Total number of failed namespace reconciliations",
			},
			[]string{labelController},
		),
		writes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cluster_writes_total",
				Help:      "Cluster API writes issued by the reconciler",
			},
			[]string{labelKind, labelOperation},
		),
		shadows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "shadow_ingresses",
				Help:      "Shadow Ingresses ensured in the last reconcile of a namespace",
			},
			[]string{labelNamespace},
		),
	}
}

// RecordWrite counts a create or update of kind.
func (m *ControllerMetrics) RecordWrite(kind, operation string) {
	m.writes.WithLabelValues(kind, operation).Inc()
}

// SetShadowCount records the number of shadows ensured in namespace.
func (m *ControllerMetrics) SetShadowCount(namespace string, count int) {
	m.shadows.WithLabelValues(namespace).Set(float64(count))
}

// ReconcileTimer is a helper for timing reconciliation operations.
type ReconcileTimer struct {
	controller string
	startTime  time.Time
	metrics    *ControllerMetrics
}

// NewReconcileTimer creates a new ReconcileTimer.
func NewReconcileTimer(controller string) *ReconcileTimer {
	return &ReconcileTimer{
		controller: controller,
		startTime:  time.Now(),
		metrics:    GetControllerMetrics(),
	}
}

func (t *ReconcileTimer) observe(result string) {
	t.metrics.reconcileDuration.WithLabelValues(t.controller).Observe(time.Since(t.startTime).Seconds())
	t.metrics.reconcileTotal.WithLabelValues(t.controller, result).Inc()
}

// RecordSuccess records a successful reconciliation.
func (t *ReconcileTimer) RecordSuccess() {
	t.observe(ResultSuccess)
}

// RecordError records a failed reconciliation.
func (t *ReconcileTimer) RecordError() {
	t.observe(ResultError)
	t.metrics.reconcileErrors.WithLabelValues(t.controller).Inc()
}

// RecordRequeue records a reconciliation that asked to be retried later.
func (t *ReconcileTimer) RecordRequeue() {
	t.observe(ResultRequeue)
}
