package keystore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/ingressmonitor/internal/circuitbreaker"
	"github.com/vyrodovalexey/ingressmonitor/internal/config"
	"github.com/vyrodovalexey/ingressmonitor/internal/observability"
	"github.com/vyrodovalexey/ingressmonitor/internal/retry"
	"github.com/vyrodovalexey/ingressmonitor/internal/util"
)

// pendingValue is stored under every issued token.
const pendingValue = "pending"

// maxIssueCollisions bounds token regeneration when SET NX finds the key taken.
const maxIssueCollisions = 3

// pingTimeout bounds the connectivity check at construction.
const pingTimeout = 5 * time.Second

// isRetryableRedisError checks if the error is retryable (network/connection errors).
func isRetryableRedisError(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}
	return retry.IsNetworkError(err)
}

// RedisStore keeps pending tokens in Redis so replicas share them.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	retry     *retry.Config
	breaker   *circuitbreaker.Breaker
	logger    observability.Logger
	metrics   *Metrics
	owned     bool
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) RedisOption {
	return func(s *RedisStore) {
		s.logger = logger
	}
}

// WithKeyPrefix sets the prefix of every token key.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.keyPrefix = prefix
	}
}

// WithTokenTTL sets the expiry of pending tokens.
func WithTokenTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithRetry sets the retry policy for network failures.
func WithRetry(cfg *retry.Config) RedisOption {
	return func(s *RedisStore) {
		s.retry = cfg
	}
}

// WithBreaker sets the circuit breaker guarding Redis calls.
func WithBreaker(b *circuitbreaker.Breaker) RedisOption {
	return func(s *RedisStore) {
		s.breaker = b
	}
}

// NewRedisStore creates a store on an existing client. The caller keeps
// ownership of client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: config.DefaultRedisKeyPrefix,
		ttl:       config.DefaultTokenTTL,
		retry:     retry.DefaultConfig(),
		logger:    observability.NopLogger(),
		metrics:   GetMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = s.newBreaker(config.BreakerConfig{})
	}
	return s
}

// NewRedisStoreFromConfig connects to cfg.URL and verifies connectivity.
// The returned store closes the client on Close.
func NewRedisStoreFromConfig(ctx context.Context, cfg config.RedisConfig, opts ...RedisOption) (*RedisStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis URL is required")
	}
	redisOpts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	// Retries are applied per operation by the store.
	redisOpts.MaxRetries = -1
	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	all := []RedisOption{
		WithRetry(&retry.Config{MaxRetries: cfg.MaxRetries}),
	}
	if cfg.KeyPrefix != "" {
		all = append(all, WithKeyPrefix(cfg.KeyPrefix))
	}
	if ttl := cfg.TokenTTL.Duration(); ttl > 0 {
		all = append(all, WithTokenTTL(ttl))
	}
	all = append(all, opts...)

	s := NewRedisStore(client, all...)
	s.breaker = s.newBreaker(cfg.CircuitBreaker)
	s.owned = true

	s.logger.Info("redis challenge key store initialized",
		observability.String("addr", redisOpts.Addr),
		observability.String("keyPrefix", s.keyPrefix),
		observability.Duration("tokenTTL", s.ttl),
	)
	return s, nil
}

func (s *RedisStore) newBreaker(cfg config.BreakerConfig) *circuitbreaker.Breaker {
	return circuitbreaker.New("keystore-redis", cfg.Threshold, cfg.Timeout.Duration(),
		circuitbreaker.WithLogger(s.logger),
		circuitbreaker.WithSuccessCondition(func(err error) bool {
			return errors.Is(err, redis.Nil)
		}),
		circuitbreaker.WithStateCallback(func(name string, _, to gobreaker.State) {
			s.metrics.breakerState.WithLabelValues(name).Set(float64(to))
		}),
	)
}

func (s *RedisStore) key(token string) string {
	return s.keyPrefix + token
}

// Issue implements Store.
func (s *RedisStore) Issue(ctx context.Context) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "keystore.Issue",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("keystore.backend", backendRedis)),
	)
	defer span.End()

	for i := 0; i < maxIssueCollisions; i++ {
		token := uuid.NewString()
		var stored bool
		err := s.call(ctx, operationIssue, true, func(ctx context.Context) error {
			var setErr error
			stored, setErr = s.client.SetNX(ctx, s.key(token), pendingValue, s.ttl).Result()
			return setErr
		})
		if err != nil {
			s.metrics.recordOperation(backendRedis, operationIssue, resultError)
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
			return "", err
		}
		if stored {
			s.metrics.recordOperation(backendRedis, operationIssue, resultOK)
			return token, nil
		}
		s.logger.Debug("challenge token collision, regenerating", observability.Int("attempt", i+1))
	}

	err := util.NewTransportFailureErrorWithReason("issue challenge token", 0, "Conflict",
		"could not store a unique token")
	s.metrics.recordOperation(backendRedis, operationIssue, resultError)
	span.SetStatus(codes.Error, err.Error())
	return "", err
}

// Verify implements Store.
func (s *RedisStore) Verify(ctx context.Context, token string) (bool, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "keystore.Verify",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("keystore.backend", backendRedis)),
	)
	defer span.End()

	if token == "" {
		s.metrics.recordOperation(backendRedis, operationVerify, resultMiss)
		return false, nil
	}

	// DEL is not retried: a reply lost after the key was removed would make
	// the retry report a genuine answer as a replay.
	var removed int64
	err := s.call(ctx, operationVerify, false, func(ctx context.Context) error {
		var delErr error
		removed, delErr = s.client.Del(ctx, s.key(token)).Result()
		return delErr
	})
	if err != nil {
		s.metrics.recordOperation(backendRedis, operationVerify, resultError)
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return false, err
	}

	verified := removed == 1
	span.SetAttributes(attribute.Bool("keystore.verified", verified))
	if verified {
		s.metrics.recordOperation(backendRedis, operationVerify, resultOK)
	} else {
		s.metrics.recordOperation(backendRedis, operationVerify, resultMiss)
	}
	return verified, nil
}

// call runs fn through the breaker, retrying network failures when
// retryable is set. Failures are returned as transport failures.
func (s *RedisStore) call(ctx context.Context, operation string, retryable bool, fn func(ctx context.Context) error) error {
	start := time.Now()
	defer func() {
		s.metrics.operationDuration.WithLabelValues(backendRedis, operation).Observe(time.Since(start).Seconds())
	}()

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		if !retryable {
			return fn(ctx)
		}
		return retry.Do(ctx, s.retry, fn, &retry.Options{
			ShouldRetry: isRetryableRedisError,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				s.logger.Debug("retrying redis "+operation,
					observability.Int("attempt", attempt),
					observability.Duration("backoff", backoff),
					observability.Error(err),
				)
			},
		})
	})
	if err != nil {
		s.logger.Error("redis "+operation+" failed", observability.Error(err))
		return util.NewTransportFailureErrorWithCause("redis "+operation, err)
	}
	return nil
}

// Client returns the underlying Redis client.
func (s *RedisStore) Client() redis.UniversalClient {
	return s.client
}

// Close implements Store. Clients passed to NewRedisStore are left open.
func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
