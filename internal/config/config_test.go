package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.Equal(t, "uptime=ping", cfg.Controller.MonitorLabel)
	assert.Equal(t, "dolittle.io/uptime-ping", cfg.Ping.Annotation)
	assert.Equal(t, "/ping", cfg.Ping.Path)
	assert.Equal(t, "-uptime-external", cfg.Ingress.NameSuffix)
	assert.Equal(t, "/ping", cfg.Ingress.Path)
	assert.Equal(t, "Ingress", cfg.Ingress.Kind)
	assert.Equal(t, "networking.k8s.io/v1", cfg.Ingress.APIVersion)
	assert.Equal(t, "uptime=external", cfg.Ingress.Label)
	assert.Equal(t, "uptime-external", cfg.Service.Name)
	assert.Equal(t, 80, cfg.Service.Port)
	assert.Equal(t, "ExternalName", cfg.Service.Type)
	assert.Equal(t, "ingressmonitor.ingressmonitor.svc.cluster.local", cfg.Service.ExternalName)
	assert.Equal(t, "Service", cfg.Service.Kind)
	assert.Equal(t, "uptime=external", cfg.Service.Label)
	assert.Equal(t, "0 */5 * * * *", cfg.Scheduler.Schedule)
	assert.Equal(t, 20, cfg.Scheduler.Workers)
	assert.Equal(t, 100, cfg.Scheduler.QueueDepth)
	require.NotNil(t, cfg.Scheduler.RunOnStart)
	assert.True(t, *cfg.Scheduler.RunOnStart)
	assert.Equal(t, 10*time.Second, cfg.Prober.Timeout.Duration())
	assert.Equal(t, KeyStoreMemory, cfg.KeyStore.Backend)
	assert.Equal(t, 5*time.Minute, cfg.KeyStore.Redis.TokenTTL.Duration())
	assert.Equal(t, 1, cfg.Controller.MaxConcurrentReconciles)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	runOnStart := false
	cfg := &MonitorConfig{
		Service:   ServiceConfig{Name: "probe", Port: 8080},
		Scheduler: SchedulerConfig{Workers: 3, RunOnStart: &runOnStart},
		Prober:    ProberConfig{Timeout: Duration(time.Second)},
	}

	ApplyDefaults(cfg)

	assert.Equal(t, "probe", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Service.Port)
	assert.Equal(t, 3, cfg.Scheduler.Workers)
	assert.False(t, *cfg.Scheduler.RunOnStart)
	assert.Equal(t, time.Second, cfg.Prober.Timeout.Duration())
	assert.Equal(t, "Service", cfg.Service.Kind)
}
