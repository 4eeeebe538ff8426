// Package circuitbreaker wraps sony/gobreaker for calls to remote backends.
//
// The breaker trips once at least Threshold requests were seen in the
// current interval and half of them failed. While open every call fails
// fast with ErrOpen until Timeout has passed.
package circuitbreaker
