package config

import "time"

// Defaults applied to absent configuration fields.
const (
	DefaultMonitorLabel   = "uptime=ping"
	DefaultPingAnnotation = "dolittle.io/uptime-ping"
	DefaultPingPath       = "/ping"

	DefaultShadowNameSuffix = "-uptime-external"
	DefaultShadowPath       = "/ping"
	DefaultShadowKind       = "Ingress"
	DefaultShadowAPIVersion = "networking.k8s.io/v1"
	DefaultShadowLabel      = "uptime=external"

	DefaultServiceName  = "uptime-external"
	DefaultServicePort  = 80
	DefaultServiceType  = "ExternalName"
	DefaultServiceKind  = "Service"
	DefaultServiceLabel = "uptime=external"

	// DefaultServiceExternalName is the in-cluster name of the monitor's
	// own Service, which answers the pings routed by shadow Ingresses.
	DefaultServiceExternalName = "ingressmonitor.ingressmonitor.svc.cluster.local"

	DefaultSchedule   = "0 */5 * * * *"
	DefaultWorkers    = 20
	DefaultQueueDepth = 100

	DefaultProbeTimeout = 10 * time.Second
	DefaultUserAgent    = "ingressmonitor"

	DefaultKeyStoreBackend = KeyStoreMemory
	DefaultRedisKeyPrefix  = "ingressmonitor:challenge:"
	DefaultTokenTTL        = 5 * time.Minute

	DefaultMaxConcurrentReconciles = 1
	DefaultRequeueAfter            = time.Minute
)

// MaxSaltLength is the largest key accepted by the keyed response hash.
const MaxSaltLength = 64

// Key store backends.
const (
	KeyStoreMemory = "memory"
	KeyStoreRedis  = "redis"
)

// MonitorConfig is the root of the monitor configuration file.
type MonitorConfig struct {
	Controller ControllerConfig `yaml:"controller" json:"controller"`
	Ping       PingConfig       `yaml:"ping" json:"ping"`
	Ingress    IngressConfig    `yaml:"ingress" json:"ingress"`
	Service    ServiceConfig    `yaml:"service" json:"service"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" json:"scheduler"`
	Prober     ProberConfig     `yaml:"prober" json:"prober"`
	KeyStore   KeyStoreConfig   `yaml:"keystore" json:"keystore"`
}

// ControllerConfig configures the shadow Ingress reconciler.
type ControllerConfig struct {
	// MonitorLabel selects parent Ingresses, as key=value.
	MonitorLabel            string   `yaml:"monitorLabel" json:"monitorLabel"`
	MaxConcurrentReconciles int      `yaml:"maxConcurrentReconciles,omitempty" json:"maxConcurrentReconciles,omitempty"`
	RequeueAfter            Duration `yaml:"requeueAfter,omitempty" json:"requeueAfter,omitempty"`
}

// PingConfig selects probe targets and the responder path.
type PingConfig struct {
	// Annotation selects Ingresses to probe, as key or key:value.
	Annotation string `yaml:"annotation" json:"annotation"`
	Path       string `yaml:"path" json:"path"`
}

// IngressConfig describes the shadow Ingresses created per parent.
type IngressConfig struct {
	NameSuffix string `yaml:"nameSuffix" json:"nameSuffix"`
	Path       string `yaml:"path" json:"path"`
	Kind       string `yaml:"kind" json:"kind"`
	APIVersion string `yaml:"apiVersion" json:"apiVersion"`
	Label      string `yaml:"label" json:"label"`
	ClassName  string `yaml:"className,omitempty" json:"className,omitempty"`
}

// ServiceConfig describes the shared external Service of a namespace.
type ServiceConfig struct {
	Name         string `yaml:"name" json:"name"`
	ExternalName string `yaml:"externalName" json:"externalName"`
	Port         int    `yaml:"port" json:"port"`
	Type         string `yaml:"type" json:"type"`
	Kind         string `yaml:"kind" json:"kind"`
	Label        string `yaml:"label" json:"label"`
}

// SchedulerConfig configures probe ticks and the worker pool.
type SchedulerConfig struct {
	Schedule   string `yaml:"schedule" json:"schedule"`
	Workers    int    `yaml:"workers" json:"workers"`
	QueueDepth int    `yaml:"queueDepth" json:"queueDepth"`
	// DispatchRate limits probe submissions per second. Zero disables pacing.
	DispatchRate float64 `yaml:"dispatchRate,omitempty" json:"dispatchRate,omitempty"`
	RunOnStart   *bool   `yaml:"runOnStart,omitempty" json:"runOnStart,omitempty"`
}

// ProberConfig configures outbound probe requests.
type ProberConfig struct {
	Timeout            Duration `yaml:"timeout" json:"timeout"`
	UserAgent          string   `yaml:"userAgent,omitempty" json:"userAgent,omitempty"`
	InsecureSkipVerify bool     `yaml:"insecureSkipVerify,omitempty" json:"insecureSkipVerify,omitempty"`
}

// KeyStoreConfig selects and configures the challenge token store.
type KeyStoreConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	// Salt keys the response hash shared by prober and responder.
	Salt  string      `yaml:"salt" json:"salt"`
	Redis RedisConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisConfig configures the Redis token store.
type RedisConfig struct {
	URL            string        `yaml:"url" json:"url"`
	KeyPrefix      string        `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`
	TokenTTL       Duration      `yaml:"tokenTTL,omitempty" json:"tokenTTL,omitempty"`
	MaxRetries     int           `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`
	CircuitBreaker BreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
}

// BreakerConfig configures the circuit breaker in front of Redis.
type BreakerConfig struct {
	Threshold int      `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *MonitorConfig {
	cfg := &MonitorConfig{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields of cfg.
func ApplyDefaults(cfg *MonitorConfig) {
	setString(&cfg.Controller.MonitorLabel, DefaultMonitorLabel)
	setInt(&cfg.Controller.MaxConcurrentReconciles, DefaultMaxConcurrentReconciles)
	setDuration(&cfg.Controller.RequeueAfter, DefaultRequeueAfter)

	setString(&cfg.Ping.Annotation, DefaultPingAnnotation)
	setString(&cfg.Ping.Path, DefaultPingPath)

	setString(&cfg.Ingress.NameSuffix, DefaultShadowNameSuffix)
	setString(&cfg.Ingress.Path, DefaultShadowPath)
	setString(&cfg.Ingress.Kind, DefaultShadowKind)
	setString(&cfg.Ingress.APIVersion, DefaultShadowAPIVersion)
	setString(&cfg.Ingress.Label, DefaultShadowLabel)

	setString(&cfg.Service.Name, DefaultServiceName)
	setString(&cfg.Service.ExternalName, DefaultServiceExternalName)
	setInt(&cfg.Service.Port, DefaultServicePort)
	setString(&cfg.Service.Type, DefaultServiceType)
	setString(&cfg.Service.Kind, DefaultServiceKind)
	setString(&cfg.Service.Label, DefaultServiceLabel)

	setString(&cfg.Scheduler.Schedule, DefaultSchedule)
	setInt(&cfg.Scheduler.Workers, DefaultWorkers)
	setInt(&cfg.Scheduler.QueueDepth, DefaultQueueDepth)
	if cfg.Scheduler.RunOnStart == nil {
		runOnStart := true
		cfg.Scheduler.RunOnStart = &runOnStart
	}

	setDuration(&cfg.Prober.Timeout, DefaultProbeTimeout)
	setString(&cfg.Prober.UserAgent, DefaultUserAgent)

	setString(&cfg.KeyStore.Backend, DefaultKeyStoreBackend)
	setString(&cfg.KeyStore.Redis.KeyPrefix, DefaultRedisKeyPrefix)
	setDuration(&cfg.KeyStore.Redis.TokenTTL, DefaultTokenTTL)
}

func setString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

func setInt(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}

func setDuration(field *Duration, def time.Duration) {
	if *field == 0 {
		*field = Duration(def)
	}
}
