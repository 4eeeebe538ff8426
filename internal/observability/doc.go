// Package observability provides structured logging and distributed tracing
// for the ingress monitor.
//
// # Logging
//
// NewCore builds a single zap core that backs both the monitor Logger and
// the logr sink handed to controller-runtime, so reconciler and prober
// entries share one encoder and level:
//
//	core, err := observability.NewCore(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	logger := observability.NewLoggerFromCore(core)
//	logger.Info("ping finished", observability.String("host", "app.example.com"))
//
// # Tracing
//
// NewTracer installs an OpenTelemetry provider with an optional OTLP gRPC
// exporter. InjectTraceContext propagates the active span onto outbound
// probe requests and ExtractTraceContext picks it up on the ping responder.
package observability
