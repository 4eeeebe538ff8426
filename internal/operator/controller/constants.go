// Package controller provides the shadow Ingress reconciler of the monitor.
package controller

import "time"

const (
	// controllerName is the controller name used for metrics and the
	// controller-runtime builder.
	controllerName = "shadow-ingress"

	// controllerTracerName is the OpenTelemetry tracer name for reconciles.
	controllerTracerName = "ingressmonitor/controller"

	// serviceKind is the kind used in logs and errors for the shared Service.
	serviceKind = "Service"

	// namespaceKind is the kind used in logs and errors for namespaces.
	namespaceKind = "Namespace"

	// servicePortName names the single port of the shared Service.
	servicePortName = "http"
)

// Rate limiter and requeue defaults.
const (
	// RateLimiterBaseDelay is the base delay for the exponential backoff rate limiter.
	RateLimiterBaseDelay = time.Second

	// RateLimiterMaxDelay is the maximum delay for the exponential backoff rate limiter.
	RateLimiterMaxDelay = 5 * time.Minute

	// DefaultRequeueAfter is the delay before retrying a namespace whose
	// metadata could not be read.
	DefaultRequeueAfter = time.Minute
)

// Event reasons recorded on parent Ingresses and the shared Service.
const (
	EventReasonShadowCreated   = "ShadowCreated"
	EventReasonShadowUpdated   = "ShadowUpdated"
	EventReasonShadowConflict  = "ShadowConflict"
	EventReasonServiceCreated  = "ServiceCreated"
	EventReasonOwnersUpdated   = "OwnersUpdated"
	EventReasonReconcileFailed = "ReconcileFailed"
)

// Write operations counted by the writes metric.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
)
