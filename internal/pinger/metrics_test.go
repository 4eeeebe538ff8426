package pinger

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metricValue(t *testing.T, c prometheus.Metric) *dto.Metric {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m
}

func TestMetrics_RecordResult(t *testing.T) {
	t.Parallel()

	m := newMetrics(prometheus.NewRegistry())

	m.RecordResult(PingResult{Host: "a.example.com", Success: true, Duration: 20 * time.Millisecond})
	m.RecordResult(PingResult{Host: "a.example.com", Success: false, Duration: time.Second})

	assert.Equal(t, float64(1), metricValue(t, m.pings.WithLabelValues("a.example.com", resultSuccess)).GetCounter().GetValue())
	assert.Equal(t, float64(1), metricValue(t, m.pings.WithLabelValues("a.example.com", resultFailure)).GetCounter().GetValue())
	assert.Equal(t, float64(0), metricValue(t, m.hostUp.WithLabelValues("a.example.com")).GetGauge().GetValue())

	hist := &dto.Metric{}
	require.NoError(t, m.probeDuration.WithLabelValues(resultSuccess).(prometheus.Histogram).Write(hist))
	assert.Equal(t, uint64(1), hist.GetHistogram().GetSampleCount())
}

func TestMetrics_RecordRejection(t *testing.T) {
	t.Parallel()

	m := newMetrics(prometheus.NewRegistry())
	m.RecordRejection("b.example.com")
	m.RecordRejection("b.example.com")

	assert.Equal(t, float64(2), metricValue(t, m.rejections).GetCounter().GetValue())
	assert.Equal(t, float64(2), metricValue(t, m.pings.WithLabelValues("b.example.com", resultRejected)).GetCounter().GetValue())
	assert.Equal(t, float64(0), metricValue(t, m.hostUp.WithLabelValues("b.example.com")).GetGauge().GetValue())
}

func TestGetMetrics_Singleton(t *testing.T) {
	t.Parallel()

	assert.Same(t, GetMetrics(), GetMetrics())
}
