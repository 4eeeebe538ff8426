package pinger

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/ingressmonitor/internal/config"
	"github.com/vyrodovalexey/ingressmonitor/internal/keystore"
	"github.com/vyrodovalexey/ingressmonitor/internal/observability"
	"github.com/vyrodovalexey/ingressmonitor/internal/util"
)

// tracerName is the OpenTelemetry tracer name for probes and ticks.
const tracerName = "ingressmonitor/pinger"

// maxResponseBytes bounds the decoded answer body.
const maxResponseBytes = 64 << 10

// Prober sends challenge probes and verifies their answers.
type Prober struct {
	client    *http.Client
	store     keystore.Store
	hasher    *keystore.Hasher
	userAgent string
	timeout   atomic.Int64
	logger    observability.Logger
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithHTTPClient replaces the HTTP client, which tests use to reach
// httptest servers.
func WithHTTPClient(client *http.Client) ProberOption {
	return func(p *Prober) {
		p.client = client
	}
}

// WithProberLogger sets the logger.
func WithProberLogger(logger observability.Logger) ProberOption {
	return func(p *Prober) {
		p.logger = logger
	}
}

// NewProber creates a prober issuing tokens from store and checking
// answers with hasher.
func NewProber(cfg config.ProberConfig, store keystore.Store, hasher *keystore.Hasher, opts ...ProberOption) *Prober {
	p := &Prober{
		store:     store,
		hasher:    hasher,
		userAgent: cfg.UserAgent,
		logger:    observability.NopLogger(),
	}
	if p.userAgent == "" {
		p.userAgent = config.DefaultUserAgent
	}
	p.SetTimeout(cfg.Timeout.Duration())
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // User-configurable
		}
		p.client = &http.Client{Transport: transport}
	}
	return p
}

// SetTimeout changes the per-probe timeout for subsequent probes.
// Non-positive values select the default.
func (p *Prober) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = config.DefaultProbeTimeout
	}
	p.timeout.Store(int64(d))
}

// Timeout returns the per-probe timeout.
func (p *Prober) Timeout() time.Duration {
	return time.Duration(p.timeout.Load())
}

// Probe sends one challenge probe to target. Failures are reported in the
// result, never as a panic or a separate error.
func (p *Prober) Probe(ctx context.Context, target PingTarget) PingResult {
	start := time.Now()
	result := PingResult{Host: target.Host}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ping.Probe",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("server.address", target.Host),
			attribute.String("url.full", target.URL()),
		),
	)
	defer span.End()

	result.Err = p.probe(ctx, target)
	result.Success = result.Err == nil
	result.ObservedAt = time.Now()
	result.Duration = result.ObservedAt.Sub(start)

	span.SetAttributes(attribute.Bool("ping.success", result.Success))
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
		p.logger.Warn("probe failed",
			observability.String("host", target.Host),
			observability.String("url", target.URL()),
			observability.Error(result.Err),
		)
	} else {
		p.logger.Debug("probe succeeded",
			observability.String("host", target.Host),
			observability.Duration("duration", result.Duration),
		)
	}
	return result
}

func (p *Prober) probe(ctx context.Context, target PingTarget) error {
	token, err := p.store.Issue(ctx)
	if err != nil {
		return fmt.Errorf("issue challenge token: %w", err)
	}

	timeout := p.Timeout()
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target.URL(), http.NoBody)
	if err != nil {
		return util.NewTransportFailureErrorWithCause("build probe request", err)
	}
	req.Header.Set(ChallengeHeader, token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.userAgent)
	observability.InjectTraceContext(reqCtx, req.Header)

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return util.NewTimeoutError("probe "+target.Host, timeout, err)
		}
		return util.NewTransportFailureErrorWithCause("probe "+target.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body ResponseBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return util.NewTimeoutError("probe "+target.Host, timeout, err)
		}
		if resp.StatusCode != http.StatusOK {
			return util.NewTransportFailureError("probe "+target.Host, resp.StatusCode)
		}
		return util.NewVerificationFailedError(target.Host, "response body is not valid JSON")
	}

	// The token is consumed by the first verification attempt, whatever
	// the answer says.
	verified, verifyErr := p.store.Verify(ctx, token)

	switch {
	case resp.StatusCode != http.StatusOK:
		return util.NewTransportFailureErrorWithReason("probe "+target.Host, resp.StatusCode,
			http.StatusText(resp.StatusCode), body.Status)
	case body.Status != StatusOK:
		return util.NewVerificationFailedError(target.Host, fmt.Sprintf("status %q", body.Status))
	case body.ResponseKey == "":
		return util.NewVerificationFailedError(target.Host, "empty response key")
	}
	if header := resp.Header.Get(ResponseHeader); header != "" && header != body.ResponseKey {
		return util.NewVerificationFailedError(target.Host, "response key header does not match body")
	}
	if !p.hasher.Matches(token, body.ResponseKey) {
		return util.NewVerificationFailedError(target.Host, "response key does not match challenge")
	}
	if verifyErr != nil {
		return fmt.Errorf("verify challenge token: %w", verifyErr)
	}
	if !verified {
		return util.NewVerificationFailedError(target.Host, "challenge token already consumed")
	}
	return nil
}
