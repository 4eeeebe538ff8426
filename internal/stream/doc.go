// Package stream projects a client-go informer event feed onto a filtered
// snapshot of domain values.
//
// A Projector implements toolscache.ResourceEventHandler. Every add, update
// or delete is mapped to the domain type, tested against the inclusion
// predicate and applied to the published list by identity key. Subscribers
// first receive the current snapshot and then every later one, one at a time.
package stream
