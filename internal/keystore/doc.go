// Package keystore issues and verifies single-use challenge tokens.
//
// Every probe gets a fresh token before it is sent. The probed endpoint
// answers with a keyed hash of the token, and the prober consumes the token
// on its first verification attempt. A token therefore verifies at most
// once, whether or not the attempt succeeds.
//
// Two backends exist. The memory backend keeps pending tokens in a map
// guarded by a mutex. The redis backend stores them with SET NX and an
// expiry and consumes them with DEL, so several monitor replicas can share
// one token space.
package keystore
