package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func TestDependencyCheck_RecordsStatus(t *testing.T) {
	t.Parallel()

	metrics := newMetrics(prometheus.NewRegistry())
	var fail atomic.Bool
	check := CustomHealthCheck("dep", func(context.Context) error {
		if fail.Load() {
			return errors.New("down")
		}
		return nil
	}, WithCheckMetrics(metrics))

	assert.Equal(t, "dep", check.Name())
	assert.True(t, check.IsCritical())

	require.NoError(t, check.Check(context.Background()))
	assert.Equal(t, float64(1), gaugeValue(t, metrics.checkStatus.WithLabelValues("dep", string(DependencyTypeCustom))))

	fail.Store(true)
	require.Error(t, check.Check(context.Background()))
	assert.Equal(t, float64(0), gaugeValue(t, metrics.checkStatus.WithLabelValues("dep", string(DependencyTypeCustom))))
}

func TestRedisHealthCheck(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	check := RedisHealthCheck("keystore", client, WithCheckMetrics(newMetrics(prometheus.NewRegistry())))
	require.NoError(t, check.Check(context.Background()))

	mr.Close()
	assert.Error(t, check.Check(context.Background()))
}

func TestRedisHealthCheck_NilClient(t *testing.T) {
	t.Parallel()

	check := RedisHealthCheck("keystore", nil, WithCheckMetrics(newMetrics(prometheus.NewRegistry())))
	assert.Error(t, check.Check(context.Background()))
}

func TestCachedHealthCheck(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	inner := CustomHealthCheck("dep", func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithCritical(false), WithCheckMetrics(newMetrics(prometheus.NewRegistry())))

	cached := NewCachedHealthCheck(inner, time.Hour)
	assert.Equal(t, "dep", cached.Name())
	assert.False(t, cached.IsCritical())

	for i := 0; i < 3; i++ {
		require.NoError(t, cached.Check(context.Background()))
	}
	assert.Equal(t, int32(1), calls.Load())

	expiring := NewCachedHealthCheck(inner, 0)
	require.NoError(t, expiring.Check(context.Background()))
	require.NoError(t, expiring.Check(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestStatusCodeLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2xx", statusCodeLabel(200))
	assert.Equal(t, "4xx", statusCodeLabel(400))
	assert.Equal(t, "5xx", statusCodeLabel(503))
}
