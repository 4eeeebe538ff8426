package pinger

import (
	"sync/atomic"

	"github.com/vyrodovalexey/ingressmonitor/internal/kube"
	"github.com/vyrodovalexey/ingressmonitor/internal/observability"
)

// HostAggregator publishes the current probe targets. Snapshots are
// replaced atomically, so readers see either the old or the new set.
type HostAggregator struct {
	targets atomic.Pointer[[]PingTarget]
	logger  observability.Logger
	metrics *Metrics
}

// NewHostAggregator creates an aggregator with an empty target set.
func NewHostAggregator(logger observability.Logger) *HostAggregator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	a := &HostAggregator{logger: logger, metrics: GetMetrics()}
	empty := []PingTarget{}
	a.targets.Store(&empty)
	return a
}

// Update replaces the targets with those of snapshot. Its signature
// matches a stream subscriber.
func (a *HostAggregator) Update(snapshot []kube.IngressRecord) {
	targets := FlattenTargets(snapshot)
	a.targets.Store(&targets)
	a.metrics.targets.Set(float64(len(targets)))
	a.logger.Debug("probe targets updated",
		observability.Int("ingresses", len(snapshot)),
		observability.Int("targets", len(targets)),
	)
}

// Targets returns a copy of the current targets, sorted by host.
func (a *HostAggregator) Targets() []PingTarget {
	current := *a.targets.Load()
	out := make([]PingTarget, len(current))
	copy(out, current)
	return out
}
