package controller

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestControllerMetrics(t *testing.T) {
	t.Parallel()

	m := newControllerMetrics(prometheus.NewRegistry())

	m.RecordWrite("Service", OperationCreate)
	m.RecordWrite("Service", OperationCreate)
	m.RecordWrite("Ingress", OperationUpdate)
	assert.Equal(t, float64(2), counterValue(t, m.writes.WithLabelValues("Service", OperationCreate)))
	assert.Equal(t, float64(1), counterValue(t, m.writes.WithLabelValues("Ingress", OperationUpdate)))

	m.SetShadowCount("ns", 3)
	g := &dto.Metric{}
	require.NoError(t, m.shadows.WithLabelValues("ns").Write(g))
	assert.Equal(t, float64(3), g.GetGauge().GetValue())
}

func TestReconcileTimer(t *testing.T) {
	t.Parallel()

	m := newControllerMetrics(prometheus.NewRegistry())
	timer := &ReconcileTimer{controller: "test", metrics: m}

	timer.RecordSuccess()
	timer.RecordError()
	timer.RecordRequeue()

	assert.Equal(t, float64(1), counterValue(t, m.reconcileTotal.WithLabelValues("test", ResultSuccess)))
	assert.Equal(t, float64(1), counterValue(t, m.reconcileTotal.WithLabelValues("test", ResultError)))
	assert.Equal(t, float64(1), counterValue(t, m.reconcileTotal.WithLabelValues("test", ResultRequeue)))
	assert.Equal(t, float64(1), counterValue(t, m.reconcileErrors.WithLabelValues("test")))
}

func TestGetControllerMetrics_Singleton(t *testing.T) {
	t.Parallel()

	assert.Same(t, GetControllerMetrics(), GetControllerMetrics())
}
