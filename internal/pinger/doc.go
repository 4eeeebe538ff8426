// Package pinger probes the hosts of annotated Ingresses.
//
// The HostAggregator turns Ingress snapshots into PingTargets. On every
// tick the Scheduler clears the Status, then dispatches one probe per
// target through a bounded WorkerPool. Each probe carries a single-use
// challenge token. It counts as a success only when the answer proves
// knowledge of that token and the token verifies.
package pinger
