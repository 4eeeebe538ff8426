package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/ingressmonitor/internal/config"
	"github.com/vyrodovalexey/ingressmonitor/internal/keystore"
	"github.com/vyrodovalexey/ingressmonitor/internal/observability"
	"github.com/vyrodovalexey/ingressmonitor/internal/pinger"
)

// DefaultReadinessProbeTimeout bounds the readiness checks of one request.
const DefaultReadinessProbeTimeout = 5 * time.Second

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// PingPath is the route of the challenge responder.
	PingPath string

	// ReadinessProbeTimeout bounds the readiness checks of one request.
	ReadinessProbeTimeout time.Duration
}

// DefaultHandlerConfig returns a HandlerConfig with default values.
func DefaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PingPath:              config.DefaultPingPath,
		ReadinessProbeTimeout: DefaultReadinessProbeTimeout,
	}
}

// StatusResponse is the body of /status.
type StatusResponse struct {
	Status  string   `json:"status"`
	Failing []string `json:"failing,omitempty"`
}

// HostStatus is one entry of /hosts. Status is null for a host that has
// not been probed since the last tick started.
type HostStatus struct {
	Host   string `json:"host"`
	Path   string `json:"path"`
	TLS    bool   `json:"tls"`
	URL    string `json:"url"`
	Status *bool  `json:"status"`
}

// ProbeStatus is the body of /healthz and /readyz.
type ProbeStatus struct {
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Uptime    string                  `json:"uptime,omitempty"`
	Checks    map[string]*CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration,omitempty"`
	Critical bool   `json:"critical"`
}

// Handler serves the monitor's HTTP endpoints.
type Handler struct {
	status    *pinger.Status
	targets   pinger.TargetSource
	hasher    *keystore.Hasher
	logger    observability.Logger
	metrics   *Metrics
	config    *HandlerConfig
	startTime time.Time

	mu     sync.RWMutex
	checks []HealthCheck
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger.
func WithHandlerLogger(logger observability.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithHandlerConfig replaces the default configuration.
func WithHandlerConfig(cfg *HandlerConfig) HandlerOption {
	return func(h *Handler) {
		if cfg != nil {
			h.config = cfg
		}
	}
}

// WithHandlerMetrics sets the metrics the handler reports to.
func WithHandlerMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler creates a handler reading probe outcomes from status, the
// current target set from targets and answering challenges with hasher.
func NewHandler(status *pinger.Status, targets pinger.TargetSource, hasher *keystore.Hasher, opts ...HandlerOption) *Handler {
	h := &Handler{
		status:    status,
		targets:   targets,
		hasher:    hasher,
		logger:    observability.NopLogger(),
		config:    DefaultHandlerConfig(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = GetMetrics()
	}
	if h.config.PingPath == "" {
		h.config.PingPath = config.DefaultPingPath
	}
	return h
}

// AddCheck adds a readiness check.
func (h *Handler) AddCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// RemoveCheck removes a readiness check by name.
func (h *Handler) RemoveCheck(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, check := range h.checks {
		if check.Name() == name {
			h.checks = append(h.checks[:i], h.checks[i+1:]...)
			return
		}
	}
}

// RegisterRoutes registers every endpoint on engine.
func (h *Handler) RegisterRoutes(engine gin.IRoutes) {
	engine.GET(PathStatus, h.StatusHandler())
	engine.GET(PathUptimeStatus, h.StatusHandler())
	engine.GET(PathDolittleStatus, h.StatusHandler())
	engine.GET(PathHosts, h.HostsHandler())
	engine.GET(h.config.PingPath, h.PingHandler())
	engine.GET(PathLiveness, h.LivenessHandler())
	engine.GET(PathReadiness, h.ReadinessHandler())
}

// StatusHandler reports whether every probed host is healthy.
func (h *Handler) StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.status.AllHealthy() {
			h.metrics.recordRequest(PathStatus, http.StatusOK)
			c.JSON(http.StatusOK, StatusResponse{Status: pinger.StatusOK})
			return
		}
		h.metrics.recordRequest(PathStatus, http.StatusServiceUnavailable)
		c.JSON(http.StatusServiceUnavailable, StatusResponse{
			Status:  pinger.StatusError,
			Failing: h.status.Failing(),
		})
	}
}

// HostsHandler lists the current targets with their last outcome.
func (h *Handler) HostsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		targets := h.targets.Targets()
		hosts := make([]HostStatus, 0, len(targets))
		for _, target := range targets {
			entry := HostStatus{
				Host: target.Host,
				Path: target.Path,
				TLS:  target.UseTLS,
				URL:  target.URL(),
			}
			if result, ok := h.status.Lookup(target.Host); ok {
				success := result.Success
				entry.Status = &success
			}
			hosts = append(hosts, entry)
		}
		sort.Slice(hosts, func(i, j int) bool { return hosts[i].Host < hosts[j].Host })

		h.metrics.recordRequest(PathHosts, http.StatusOK)
		c.JSON(http.StatusOK, hosts)
	}
}

// PingHandler answers a challenge with the salted hash of its token.
func (h *Handler) PingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(pinger.ChallengeHeader)
		if token == "" {
			h.metrics.recordChallenge(false)
			h.metrics.recordRequest(h.config.PingPath, http.StatusBadRequest)
			c.JSON(http.StatusBadRequest, pinger.ResponseBody{Status: pinger.StatusError})
			return
		}

		key := h.hasher.ResponseKey(token)
		h.metrics.recordChallenge(true)
		h.metrics.recordRequest(h.config.PingPath, http.StatusOK)
		c.Header(pinger.ResponseHeader, key)
		c.JSON(http.StatusOK, pinger.ResponseBody{Status: pinger.StatusOK, ResponseKey: key})
	}
}

// LivenessHandler reports that the process is serving.
func (h *Handler) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.metrics.recordRequest(PathLiveness, http.StatusOK)
		c.JSON(http.StatusOK, ProbeStatus{
			Status:    checkOK,
			Timestamp: time.Now().UTC(),
			Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		})
	}
}

// ReadinessHandler runs the readiness checks. It answers 503 when a
// critical check fails.
func (h *Handler) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		timeout := h.config.ReadinessProbeTimeout
		if timeout <= 0 {
			timeout = DefaultReadinessProbeTimeout
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		status := h.runChecks(ctx)
		code := http.StatusOK
		if status.Status != checkOK {
			code = http.StatusServiceUnavailable
		}
		h.metrics.recordRequest(PathReadiness, code)
		c.JSON(code, status)
	}
}

func (h *Handler) runChecks(ctx context.Context) *ProbeStatus {
	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := &ProbeStatus{
		Status:    checkOK,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]*CheckResult, len(checks)),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, check := range checks {
		wg.Add(1)
		go func(check HealthCheck) {
			defer wg.Done()

			start := time.Now()
			err := check.Check(ctx)
			duration := time.Since(start)

			result := &CheckResult{
				Status:   checkOK,
				Duration: duration.String(),
				Critical: isCritical(check),
			}
			if err != nil {
				result.Status = checkError
				result.Error = err.Error()
				h.logger.Warn("readiness check failed",
					observability.String("check", check.Name()),
					observability.Error(err),
					observability.Duration("duration", duration),
				)
			}

			mu.Lock()
			defer mu.Unlock()
			status.Checks[check.Name()] = result
			if err != nil && result.Critical {
				status.Status = checkError
			}
		}(check)
	}
	wg.Wait()
	return status
}
