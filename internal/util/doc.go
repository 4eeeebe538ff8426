// Package util provides the error taxonomy and validation helpers shared
// by the monitor packages.
//
// # Error Conventions
//
// Sentinel errors identify stable conditions and are checked with
// errors.Is:
//
//   - ErrAlreadyExists, ErrDoesNotExist: cluster objects raced or vanished
//   - ErrTransport: any other failed cluster or probe request
//   - ErrVerificationFailed: a probe answer did not prove the challenge
//   - ErrTimeout: a bounded operation ran out of time
//
// Structured error types carry the context of the failure. Each type
// implements Error(), Unwrap() when it wraps a cause, and Is() so that it
// matches both its own type and the sentinel of its class:
//
//	err := util.NewDoesNotExistError("Service", "ns", "uptime-external")
//	errors.Is(err, util.ErrDoesNotExist) // true
//
// FromAPIError maps Kubernetes API errors into this taxonomy.
package util
