package util

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Common sentinel errors.
var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrDoesNotExist       = errors.New("does not exist")
	ErrTransport          = errors.New("transport failure")
	ErrVerificationFailed = errors.New("verification failed")
	ErrTimeout            = errors.New("timeout")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrLabelConflict      = errors.New("label already present")
)

// AlreadyExistsError reports that a cluster object exists when it was about
// to be created.
type AlreadyExistsError struct {
	Kind      string
	Namespace string
	Name      string
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("The %s %s/%s already exists.", e.Kind, e.Namespace, e.Name)
}

// Is checks if the error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if target == ErrAlreadyExists {
		return true
	}
	_, ok := target.(*AlreadyExistsError)
	return ok
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(kind, namespace, name string) *AlreadyExistsError {
	return &AlreadyExistsError{Kind: kind, Namespace: namespace, Name: name}
}

// DoesNotExistError reports that a cluster object could not be found.
type DoesNotExistError struct {
	Kind      string
	Namespace string
	Name      string
}

// Error implements the error interface.
func (e *DoesNotExistError) Error() string {
	return fmt.Sprintf("The %s %s/%s does not exist.", e.Kind, e.Namespace, e.Name)
}

// Is checks if the error matches the target.
func (e *DoesNotExistError) Is(target error) bool {
	if target == ErrDoesNotExist {
		return true
	}
	_, ok := target.(*DoesNotExistError)
	return ok
}

// NewDoesNotExistError creates a new DoesNotExistError.
func NewDoesNotExistError(kind, namespace, name string) *DoesNotExistError {
	return &DoesNotExistError{Kind: kind, Namespace: namespace, Name: name}
}

// TransportFailureError is a failed request that is neither an
// already-exists nor a not-found condition. Code is an HTTP-style status
// code, zero when the request never produced one.
type TransportFailureError struct {
	Action  string
	Code    int
	Reason  string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *TransportFailureError) Error() string {
	switch {
	case e.Reason != "" && e.Message != "":
		return fmt.Sprintf("%s failed with code %d: %s: %s", e.Action, e.Code, e.Reason, e.Message)
	case e.Code != 0:
		return fmt.Sprintf("%s failed with code %d", e.Action, e.Code)
	case e.Cause != nil:
		return fmt.Sprintf("%s failed: %v", e.Action, e.Cause)
	default:
		return e.Action + " failed"
	}
}

// Unwrap returns the underlying error.
func (e *TransportFailureError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *TransportFailureError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	_, ok := target.(*TransportFailureError)
	return ok || errors.Is(e.Cause, target)
}

// NewTransportFailureError creates a TransportFailureError from a status code.
func NewTransportFailureError(action string, code int) *TransportFailureError {
	return &TransportFailureError{Action: action, Code: code}
}

// NewTransportFailureErrorWithReason creates a TransportFailureError carrying
// the machine-readable reason and message of the failed request.
func NewTransportFailureErrorWithReason(action string, code int, reason, message string) *TransportFailureError {
	return &TransportFailureError{Action: action, Code: code, Reason: reason, Message: message}
}

// NewTransportFailureErrorWithCause creates a TransportFailureError wrapping cause.
func NewTransportFailureErrorWithCause(action string, cause error) *TransportFailureError {
	return &TransportFailureError{Action: action, Cause: cause}
}

// VerificationFailedError reports a probe answer that did not prove the
// challenge token.
type VerificationFailedError struct {
	Host   string
	Reason string
}

// Error implements the error interface.
func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("verification of %s failed: %s", e.Host, e.Reason)
}

// Is checks if the error matches the target.
func (e *VerificationFailedError) Is(target error) bool {
	if target == ErrVerificationFailed {
		return true
	}
	_, ok := target.(*VerificationFailedError)
	return ok
}

// NewVerificationFailedError creates a new VerificationFailedError.
func NewVerificationFailedError(host, reason string) *VerificationFailedError {
	return &VerificationFailedError{Host: host, Reason: reason}
}

// TimeoutError represents a timeout error.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
	Cause     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %v during %s", e.Duration, e.Operation)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if target == ErrTimeout {
		return true
	}
	_, ok := target.(*TimeoutError)
	return ok || errors.Is(e.Cause, target)
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration, cause error) *TimeoutError {
	return &TimeoutError{Operation: operation, Duration: duration, Cause: cause}
}

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// LabelConflictError is returned when a label or annotation set already
// holds the key being added.
type LabelConflictError struct {
	Key string
}

// Error implements the error interface.
func (e *LabelConflictError) Error() string {
	return fmt.Sprintf("the set already contains an entry with key %q", e.Key)
}

// Is checks if the error matches the target.
func (e *LabelConflictError) Is(target error) bool {
	if target == ErrLabelConflict {
		return true
	}
	_, ok := target.(*LabelConflictError)
	return ok
}

// NewLabelConflictError creates a new LabelConflictError.
func NewLabelConflictError(key string) *LabelConflictError {
	return &LabelConflictError{Key: key}
}

// FromAPIError classifies an error returned by the cluster API.
// A nil error stays nil.
func FromAPIError(action, kind, namespace, name string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case apierrors.IsAlreadyExists(err):
		return NewAlreadyExistsError(kind, namespace, name)
	case apierrors.IsNotFound(err):
		return NewDoesNotExistError(kind, namespace, name)
	}

	var status apierrors.APIStatus
	if errors.As(err, &status) {
		s := status.Status()
		return &TransportFailureError{
			Action:  action,
			Code:    int(s.Code),
			Reason:  string(s.Reason),
			Message: s.Message,
			Cause:   err,
		}
	}
	return NewTransportFailureErrorWithCause(action, err)
}

// IsIdempotentCondition reports whether err is an already-exists or
// not-found condition that reconciliation absorbs.
func IsIdempotentCondition(err error) bool {
	return errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrDoesNotExist)
}

// StatusCodeOf returns the HTTP-style code carried by err, or
// http.StatusInternalServerError when there is none.
func StatusCodeOf(err error) int {
	var tf *TransportFailureError
	if errors.As(err, &tf) && tf.Code != 0 {
		return tf.Code
	}
	switch {
	case errors.Is(err, ErrDoesNotExist):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
