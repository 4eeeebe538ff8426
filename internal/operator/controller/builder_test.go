package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"

	"github.com/vyrodovalexey/ingressmonitor/internal/util"
)

func TestBuildShadow(t *testing.T) {
	t.Parallel()

	parent := newParent("app", "a.example.com")
	parent.Spec.Rules = append(parent.Spec.Rules, networkingv1.IngressRule{Host: "b.example.com"})

	shadow, err := buildShadow(testOptions(), parent)
	require.NoError(t, err)

	assert.Equal(t, "app-external", shadow.Name)
	assert.Equal(t, testNamespace, shadow.Namespace)
	// The parent's labels are kept, the monitor label included.
	assert.Equal(t, map[string]string{"app": "app", "monitor": "true", "uptime": "external"}, shadow.Labels)
	require.Len(t, shadow.Spec.Rules, 2)
	for _, rule := range shadow.Spec.Rules {
		require.NotNil(t, rule.HTTP)
		require.Len(t, rule.HTTP.Paths, 1)
		assert.Equal(t, networkingv1.PathTypePrefix, *rule.HTTP.Paths[0].PathType)
		assert.Equal(t, "external-svc", rule.HTTP.Paths[0].Backend.Service.Name)
	}
	assert.Equal(t, "b.example.com", shadow.Spec.Rules[1].Host)
	assert.Nil(t, shadow.Spec.IngressClassName)
}

func TestBuildShadow_DoesNotAliasParent(t *testing.T) {
	t.Parallel()

	parent := newParent("app", "a.example.com")
	shadow, err := buildShadow(testOptions(), parent)
	require.NoError(t, err)

	shadow.Annotations["changed"] = "yes"
	shadow.Spec.TLS[0].Hosts[0] = "changed.example.com"

	assert.NotContains(t, parent.Annotations, "changed")
	assert.Equal(t, "a.example.com", parent.Spec.TLS[0].Hosts[0])
	assert.Equal(t, "true", parent.Labels["monitor"])
}

func TestBuildShadow_IngressClass(t *testing.T) {
	t.Parallel()

	parentClass := "nginx"
	tests := []struct {
		name     string
		override string
		parent   *string
		want     *string
	}{
		{name: "none", want: nil},
		{name: "copied from parent", parent: &parentClass, want: &parentClass},
		{name: "override wins", override: "external", parent: &parentClass, want: strPtr("external")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := testOptions()
			opts.ShadowClassName = tt.override
			parent := newParent("app", "a.example.com")
			parent.Spec.IngressClassName = tt.parent

			shadow, err := buildShadow(opts, parent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, shadow.Spec.IngressClassName)
		})
	}
}

func TestBuildShadow_LabelConflict(t *testing.T) {
	t.Parallel()

	parent := newParent("app", "a.example.com")
	parent.Labels["uptime"] = "other"

	_, err := buildShadow(testOptions(), parent)
	assert.ErrorIs(t, err, util.ErrLabelConflict)
}

func TestBuildShadow_MonitorAndShadowShareKey(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.MonitorLabel.Key = "uptime"
	opts.MonitorLabel.Value = "ping"
	parent := newParent("app", "a.example.com")
	parent.Labels = map[string]string{"uptime": "ping"}

	shadow, err := buildShadow(opts, parent)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"uptime": "external"}, shadow.Labels)
}

func TestBuildService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		serviceType  corev1.ServiceType
		wantExternal string
	}{
		{name: "external name", serviceType: corev1.ServiceTypeExternalName, wantExternal: "monitor.example.com"},
		{name: "cluster ip", serviceType: corev1.ServiceTypeClusterIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := testOptions()
			opts.ServiceType = tt.serviceType
			ns := newNamespace(testNamespace, map[string]string{"team": "web", "uptime": "stale"})

			svc, err := buildService(opts, ns)
			require.NoError(t, err)
			assert.Equal(t, "external-svc", svc.Name)
			assert.Equal(t, testNamespace, svc.Namespace)
			assert.Equal(t, map[string]string{"team": "web", "uptime": "external"}, svc.Labels)
			assert.Equal(t, tt.serviceType, svc.Spec.Type)
			assert.Equal(t, tt.wantExternal, svc.Spec.ExternalName)
			require.Len(t, svc.Spec.Ports, 1)
			assert.Equal(t, servicePortName, svc.Spec.Ports[0].Name)
			assert.Equal(t, corev1.ProtocolTCP, svc.Spec.Ports[0].Protocol)
		})
	}
}

func TestIsShadow(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	parent := newParent("app", "a.example.com")
	assert.False(t, isShadow(opts, parent))

	shadow, err := buildShadow(opts, parent)
	require.NoError(t, err)
	assert.True(t, isShadow(opts, shadow))
}

func strPtr(s string) *string { return &s }
