package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/ingressmonitor/internal/observability"
)

// Defaults used when the configuration leaves a field unset.
const (
	DefaultThreshold = 5
	DefaultTimeout   = 30 * time.Second
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// cbTracer is the OTEL tracer used for circuit breaker operations.
var cbTracer = otel.Tracer("ingressmonitor/circuitbreaker")

// StateFunc is called when the circuit breaker changes state.
type StateFunc func(name string, from, to gobreaker.State)

// Breaker wraps gobreaker.CircuitBreaker.
type Breaker struct {
	cb            *gobreaker.CircuitBreaker
	logger        observability.Logger
	stateCallback StateFunc
	isSuccessful  func(error) bool
}

// Option is a functional option for configuring the breaker.
type Option func(*Breaker)

// WithLogger sets the logger for the breaker.
func WithLogger(logger observability.Logger) Option {
	return func(b *Breaker) {
		b.logger = logger
	}
}

// WithStateCallback sets a callback for state changes.
func WithStateCallback(fn StateFunc) Option {
	return func(b *Breaker) {
		b.stateCallback = fn
	}
}

// WithSuccessCondition marks errors that must not count as failures, such
// as a missing key.
func WithSuccessCondition(fn func(error) bool) Option {
	return func(b *Breaker) {
		b.isSuccessful = fn
	}
}

// New creates a breaker. Non-positive threshold or timeout select the
// package defaults.
func New(name string, threshold int, timeout time.Duration, opts ...Option) *Breaker {
	b := &Breaker{
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(b)
	}

	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	thresholdU32 := safeIntToUint32(threshold)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: thresholdU32,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= thresholdU32 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			b.logger.Warn("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)

			_, span := cbTracer.Start(context.Background(),
				"circuitbreaker.state_change",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			span.AddEvent("state_change", trace.WithAttributes(
				attribute.String("circuitbreaker.name", name),
				attribute.String("circuitbreaker.from", from.String()),
				attribute.String("circuitbreaker.to", to.String()),
			))
			span.End()

			if b.stateCallback != nil {
				b.stateCallback(name, from, to)
			}
		},
	}
	if b.isSuccessful != nil {
		isSuccessful := b.isSuccessful
		settings.IsSuccessful = func(err error) bool {
			return err == nil || isSuccessful(err)
		}
	}

	b.cb = gobreaker.NewCircuitBreaker(settings)
	return b
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

// Execute runs fn under breaker protection. Rejections are reported as
// ErrOpen wrapping the gobreaker error.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrOpen, err)
	}
	return err
}

// State returns the current state of the breaker.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.cb.Name()
}
