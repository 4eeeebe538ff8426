package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/vyrodovalexey/ingressmonitor/internal/kube"
	"github.com/vyrodovalexey/ingressmonitor/internal/util"
)

// ScheduleParser parses scheduler.schedule. A leading seconds field is
// required and descriptors such as @every 5m are accepted.
var ScheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidationErrors collects every problem found in a configuration.
type ValidationErrors []*util.ConfigError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

// Settings are the parsed forms of the string properties of a
// MonitorConfig.
type Settings struct {
	MonitorLabel   kube.Label
	PingAnnotation kube.AnnotationSelector
	ShadowLabel    kube.Label
	ServiceLabel   kube.Label
	Schedule       cron.Schedule
}

// validator accumulates errors while resolving a configuration.
type validator struct {
	errors ValidationErrors
}

// ValidateConfig validates a configuration with defaults already applied.
func ValidateConfig(cfg *MonitorConfig) error {
	_, err := Resolve(cfg)
	return err
}

// Resolve validates cfg and returns its parsed settings.
func Resolve(cfg *MonitorConfig) (*Settings, error) {
	if cfg == nil {
		return nil, ValidationErrors{util.NewConfigError("", "configuration is nil")}
	}

	v := &validator{}
	settings := &Settings{
		MonitorLabel: v.label("controller.monitorLabel", cfg.Controller.MonitorLabel),
		ShadowLabel:  v.label("ingress.label", cfg.Ingress.Label),
		ServiceLabel: v.label("service.label", cfg.Service.Label),
	}

	if sel, err := ParseAnnotationProperty("ping.annotation", cfg.Ping.Annotation); err != nil {
		v.add(asConfigError("ping.annotation", err))
	} else {
		settings.PingAnnotation = sel
	}

	v.path("ping.path", cfg.Ping.Path)
	v.validateIngress(&cfg.Ingress)
	v.validateService(&cfg.Service)
	settings.Schedule = v.validateScheduler(&cfg.Scheduler)
	v.validateProber(&cfg.Prober)
	v.validateKeyStore(&cfg.KeyStore)

	if cfg.Controller.MaxConcurrentReconciles < 1 {
		v.addf("controller.maxConcurrentReconciles", "must be at least 1")
	}

	if len(v.errors) > 0 {
		return nil, v.errors
	}
	return settings, nil
}

func (v *validator) add(err *util.ConfigError) {
	v.errors = append(v.errors, err)
}

func (v *validator) addf(field, format string, args ...interface{}) {
	v.add(util.NewConfigError(field, fmt.Sprintf(format, args...)))
}

func (v *validator) label(field, s string) kube.Label {
	l, err := ParseLabelProperty(field, s)
	if err != nil {
		v.add(asConfigError(field, err))
	}
	return l
}

func (v *validator) path(field, s string) {
	if _, err := ParsePathProperty(field, s); err != nil {
		v.add(asConfigError(field, err))
	}
}

func (v *validator) nonEmpty(field, s string) {
	if err := util.ValidateNonEmpty(s, field); err != nil {
		v.add(util.NewConfigErrorWithCause(field, "cannot be empty", err))
	}
}

func (v *validator) validateIngress(cfg *IngressConfig) {
	if cfg.NameSuffix == "" {
		v.addf("ingress.nameSuffix", "cannot be empty")
	} else if msgs := validation.IsDNS1123Subdomain("x" + cfg.NameSuffix); len(msgs) > 0 {
		v.addf("ingress.nameSuffix", "produces invalid names: %s", strings.Join(msgs, "; "))
	}
	v.path("ingress.path", cfg.Path)
	v.nonEmpty("ingress.kind", cfg.Kind)
	v.nonEmpty("ingress.apiVersion", cfg.APIVersion)
}

func (v *validator) validateService(cfg *ServiceConfig) {
	if msgs := validation.IsDNS1035Label(cfg.Name); len(msgs) > 0 {
		v.addf("service.name", "invalid service name %q: %s", cfg.Name, strings.Join(msgs, "; "))
	}
	if err := util.ValidatePort(cfg.Port); err != nil {
		v.addf("service.port", "%v", err)
	}
	switch corev1.ServiceType(cfg.Type) {
	case corev1.ServiceTypeExternalName:
		if err := util.ValidateHostname(cfg.ExternalName); err != nil {
			v.addf("service.externalName", "required for ExternalName services: %v", err)
		}
	case corev1.ServiceTypeClusterIP, corev1.ServiceTypeNodePort, corev1.ServiceTypeLoadBalancer:
	default:
		v.addf("service.type", "unknown service type %q", cfg.Type)
	}
	v.nonEmpty("service.kind", cfg.Kind)
}

func (v *validator) validateScheduler(cfg *SchedulerConfig) cron.Schedule {
	var schedule cron.Schedule
	if s, err := ScheduleParser.Parse(cfg.Schedule); err != nil {
		v.add(util.NewConfigErrorWithCause("scheduler.schedule", "invalid cron expression", err))
	} else {
		schedule = s
	}
	if cfg.Workers < 1 {
		v.addf("scheduler.workers", "must be at least 1, got %d", cfg.Workers)
	}
	if cfg.QueueDepth < 0 {
		v.addf("scheduler.queueDepth", "cannot be negative, got %d", cfg.QueueDepth)
	}
	if cfg.DispatchRate < 0 {
		v.addf("scheduler.dispatchRate", "cannot be negative, got %v", cfg.DispatchRate)
	}
	return schedule
}

func (v *validator) validateProber(cfg *ProberConfig) {
	if err := util.ValidatePositiveDuration(cfg.Timeout.Duration()); err != nil {
		v.addf("prober.timeout", "%v", err)
	}
}

func (v *validator) validateKeyStore(cfg *KeyStoreConfig) {
	if len(cfg.Salt) > MaxSaltLength {
		v.addf("keystore.salt", "must be at most %d bytes", MaxSaltLength)
	}
	switch cfg.Backend {
	case KeyStoreMemory:
	case KeyStoreRedis:
		if cfg.Redis.URL == "" {
			v.addf("keystore.redis.url", "required for the redis backend")
		}
		if err := util.ValidatePositiveDuration(cfg.Redis.TokenTTL.Duration()); err != nil {
			v.addf("keystore.redis.tokenTTL", "%v", err)
		}
		if cfg.Redis.MaxRetries < 0 {
			v.addf("keystore.redis.maxRetries", "cannot be negative")
		}
	default:
		v.addf("keystore.backend", "unknown backend %q", cfg.Backend)
	}
}

func asConfigError(field string, err error) *util.ConfigError {
	if ce, ok := err.(*util.ConfigError); ok {
		return ce
	}
	return util.NewConfigErrorWithCause(field, err.Error(), err)
}
