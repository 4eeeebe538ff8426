package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/ingressmonitor/internal/observability"
)

var errBackend = errors.New("backend down")

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	b := New("redis", 0, 0, WithLogger(observability.NopLogger()))

	require.NotNil(t, b)
	assert.Equal(t, "redis", b.Name())
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestExecute_PassesResult(t *testing.T) {
	t.Parallel()

	b := New("redis", 5, time.Minute)

	assert.NoError(t, b.Execute(context.Background(), func(context.Context) error { return nil }))
	assert.ErrorIs(t, b.Execute(context.Background(), func(context.Context) error { return errBackend }), errBackend)
}

func TestExecute_TripsAndRejects(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var transitions []gobreaker.State
	b := New("redis", 2, time.Minute, WithStateCallback(func(_ string, _, to gobreaker.State) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, to)
	}))

	for i := 0; i < 2; i++ {
		_ = b.Execute(context.Background(), func(context.Context) error { return errBackend })
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	called := false
	err := b.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.ErrorIs(t, err, ErrOpen)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
}

func TestExecute_HalfOpenRecovers(t *testing.T) {
	t.Parallel()

	b := New("redis", 1, 20*time.Millisecond)
	_ = b.Execute(context.Background(), func(context.Context) error { return errBackend })
	require.Equal(t, gobreaker.StateOpen, b.State())

	require.Eventually(t, func() bool {
		return b.State() == gobreaker.StateHalfOpen
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Execute(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestExecute_SuccessCondition(t *testing.T) {
	t.Parallel()

	notFound := errors.New("not found")
	b := New("redis", 1, time.Minute, WithSuccessCondition(func(err error) bool {
		return errors.Is(err, notFound)
	}))

	for i := 0; i < 5; i++ {
		err := b.Execute(context.Background(), func(context.Context) error { return notFound })
		assert.ErrorIs(t, err, notFound)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestSafeIntToUint32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    int
		expected uint32
	}{
		{"negative", -1, 0},
		{"zero", 0, 0},
		{"positive", 42, 42},
		{"max uint32", int(^uint32(0)), ^uint32(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, safeIntToUint32(tt.input))
		})
	}
}
