package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DependencyType classifies a readiness dependency.
type DependencyType string

const (
	// DependencyTypeCache is a key/value store dependency.
	DependencyTypeCache DependencyType = "cache"
	// DependencyTypeCustom is any other dependency.
	DependencyTypeCustom DependencyType = "custom"
)

// HealthCheck is a named readiness check.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// DependencyCheck checks one dependency and records its outcome.
type DependencyCheck struct {
	name     string
	depType  DependencyType
	checkFn  func(ctx context.Context) error
	critical bool
	metrics  *Metrics
}

// DependencyCheckOption configures a DependencyCheck.
type DependencyCheckOption func(*DependencyCheck)

// WithCritical sets whether a failure makes the process unready. Checks
// are critical unless configured otherwise.
func WithCritical(critical bool) DependencyCheckOption {
	return func(d *DependencyCheck) {
		d.critical = critical
	}
}

// WithCheckMetrics sets the metrics the check reports to.
func WithCheckMetrics(m *Metrics) DependencyCheckOption {
	return func(d *DependencyCheck) {
		d.metrics = m
	}
}

// NewDependencyCheck creates a dependency check.
func NewDependencyCheck(
	name string,
	depType DependencyType,
	checkFn func(ctx context.Context) error,
	opts ...DependencyCheckOption,
) *DependencyCheck {
	d := &DependencyCheck{
		name:     name,
		depType:  depType,
		checkFn:  checkFn,
		critical: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = GetMetrics()
	}
	return d
}

// Name returns the check name.
func (d *DependencyCheck) Name() string {
	return d.name
}

// Check runs the check.
func (d *DependencyCheck) Check(ctx context.Context) error {
	start := time.Now()
	err := d.checkFn(ctx)
	d.metrics.recordCheck(d.name, d.depType, err == nil, time.Since(start).Seconds())
	return err
}

// IsCritical reports whether a failure makes the process unready.
func (d *DependencyCheck) IsCritical() bool {
	return d.critical
}

// RedisHealthCheck pings the Redis key store backend.
func RedisHealthCheck(name string, client redis.UniversalClient, opts ...DependencyCheckOption) *DependencyCheck {
	return NewDependencyCheck(name, DependencyTypeCache, func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	}, opts...)
}

// CustomHealthCheck creates a check from a function.
func CustomHealthCheck(
	name string,
	checkFn func(ctx context.Context) error,
	opts ...DependencyCheckOption,
) *DependencyCheck {
	return NewDependencyCheck(name, DependencyTypeCustom, checkFn, opts...)
}

// CachedHealthCheck reuses the last result of check for cacheTTL so that
// frequent probes do not hit the dependency on every request.
type CachedHealthCheck struct {
	check      HealthCheck
	cacheTTL   time.Duration
	mu         sync.Mutex
	lastCheck  time.Time
	lastResult error
}

// NewCachedHealthCheck wraps check.
func NewCachedHealthCheck(check HealthCheck, cacheTTL time.Duration) *CachedHealthCheck {
	return &CachedHealthCheck{
		check:    check,
		cacheTTL: cacheTTL,
	}
}

// Name returns the wrapped check name.
func (c *CachedHealthCheck) Name() string {
	return c.check.Name()
}

// Check returns the cached result or runs the wrapped check.
func (c *CachedHealthCheck) Check(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastCheck.IsZero() && time.Since(c.lastCheck) < c.cacheTTL {
		return c.lastResult
	}
	c.lastResult = c.check.Check(ctx)
	c.lastCheck = time.Now()
	return c.lastResult
}

// IsCritical forwards the wrapped check's criticality.
func (c *CachedHealthCheck) IsCritical() bool {
	return isCritical(c.check)
}

type criticalChecker interface {
	IsCritical() bool
}

func isCritical(check HealthCheck) bool {
	if cc, ok := check.(criticalChecker); ok {
		return cc.IsCritical()
	}
	return true
}
