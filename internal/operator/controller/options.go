package controller

import (
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/vyrodovalexey/ingressmonitor/internal/config"
	"github.com/vyrodovalexey/ingressmonitor/internal/kube"
)

// Options configure the shadow Ingress reconciler.
type Options struct {
	// MonitorLabel selects parent Ingresses.
	MonitorLabel kube.Label

	// ShadowLabel marks shadow Ingresses. Parents already carrying it are
	// never mirrored.
	ShadowLabel      kube.Label
	ShadowNameSuffix string
	ShadowPath       string
	ShadowKind       string
	ShadowAPIVersion string
	// ShadowClassName overrides the IngressClass copied from the parent.
	ShadowClassName string

	ServiceLabel        kube.Label
	ServiceName         string
	ServiceExternalName string
	ServicePort         int32
	ServiceType         corev1.ServiceType

	MaxConcurrentReconciles int
	RequeueAfter            time.Duration
}

// NewOptions builds reconciler options from a resolved configuration.
func NewOptions(cfg *config.MonitorConfig, settings *config.Settings) Options {
	return Options{
		MonitorLabel:            settings.MonitorLabel,
		ShadowLabel:             settings.ShadowLabel,
		ShadowNameSuffix:        cfg.Ingress.NameSuffix,
		ShadowPath:              cfg.Ingress.Path,
		ShadowKind:              cfg.Ingress.Kind,
		ShadowAPIVersion:        cfg.Ingress.APIVersion,
		ShadowClassName:         cfg.Ingress.ClassName,
		ServiceLabel:            settings.ServiceLabel,
		ServiceName:             cfg.Service.Name,
		ServiceExternalName:     cfg.Service.ExternalName,
		ServicePort:             int32(cfg.Service.Port), //nolint:gosec // validated to 1-65535
		ServiceType:             corev1.ServiceType(cfg.Service.Type),
		MaxConcurrentReconciles: cfg.Controller.MaxConcurrentReconciles,
		RequeueAfter:            cfg.Controller.RequeueAfter.Duration(),
	}
}

// ShadowName returns the name of the shadow of parent.
func (o Options) ShadowName(parent string) string {
	return parent + o.ShadowNameSuffix
}

func (o Options) requeueAfter() time.Duration {
	if o.RequeueAfter > 0 {
		return o.RequeueAfter
	}
	return DefaultRequeueAfter
}

func (o Options) maxConcurrentReconciles() int {
	if o.MaxConcurrentReconciles > 0 {
		return o.MaxConcurrentReconciles
	}
	return 1
}
