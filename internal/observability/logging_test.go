package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultLogConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultLogConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{name: "json info", cfg: LogConfig{Level: "info", Format: "json"}},
		{name: "console debug", cfg: LogConfig{Level: "debug", Format: "console", Output: "stderr"}},
		{name: "empty level defaults", cfg: LogConfig{}},
		{name: "invalid level", cfg: LogConfig{Level: "loud"}, wantErr: true},
		{name: "invalid format", cfg: LogConfig{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewCore_Level(t *testing.T) {
	t.Parallel()

	core, err := NewCore(LogConfig{Level: "warn"})
	require.NoError(t, err)

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
}

func TestLogger_WithFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromCore(core).Named("pinger").With(String("host", "a.example.com"))

	logger.Info("ping finished", Bool("up", true))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "pinger", entries[0].LoggerName)
	assert.Equal(t, "ping finished", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "a.example.com", fields["host"])
	assert.Equal(t, true, fields["up"])
}

func TestLogger_WithContext(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromCore(core)

	logger.WithContext(context.Background()).Info("no span")

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	logger.WithContext(ctx).Info("with span")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0].ContextMap(), "trace_id")
	assert.Equal(t, traceID.String(), entries[1].ContextMap()["trace_id"])
	assert.Equal(t, spanID.String(), entries[1].ContextMap()["span_id"])
}

func TestNopLogger(t *testing.T) {
	t.Parallel()

	logger := NopLogger()
	logger.Debug("debug")
	logger.Error("error", Error(assert.AnError))
	assert.NoError(t, logger.Sync())
}
