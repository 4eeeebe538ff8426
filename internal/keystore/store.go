package keystore

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/ingressmonitor/internal/config"
	"github.com/vyrodovalexey/ingressmonitor/internal/observability"
)

// tracerName is the OpenTelemetry tracer name for key store operations.
const tracerName = "ingressmonitor/keystore"

// Backend names used in metrics and spans.
const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

// Operation names used in metrics.
const (
	operationIssue  = "issue"
	operationVerify = "verify"
)

// Store issues challenge tokens and consumes them on verification.
// Implementations are safe for concurrent use.
type Store interface {
	// Issue records a new pending token and returns it.
	Issue(ctx context.Context) (string, error)

	// Verify consumes token. It reports true iff the token was pending.
	// An unknown or consumed token yields false without an error.
	Verify(ctx context.Context, token string) (bool, error)

	// Close releases backend resources.
	Close() error
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.KeyStoreConfig, logger observability.Logger) (Store, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	switch cfg.Backend {
	case "", config.KeyStoreMemory:
		logger.Info("using in-memory challenge key store")
		return NewMemoryStore(), nil
	case config.KeyStoreRedis:
		return NewRedisStoreFromConfig(ctx, cfg.Redis, WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown key store backend %q", cfg.Backend)
	}
}
