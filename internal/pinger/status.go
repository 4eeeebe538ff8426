package pinger

import (
	"sort"
	"sync"
	"time"
)

// PingResult is the outcome of one probe.
type PingResult struct {
	Host       string
	Success    bool
	ObservedAt time.Time
	Duration   time.Duration
	// Err explains a failure. It is nil on success.
	Err error
}

// Status maps hosts to their last probe outcome. The zero value is not
// usable; create one with NewStatus.
type Status struct {
	mu      sync.RWMutex
	results map[string]PingResult
}

// NewStatus creates an empty status. An empty status is healthy.
func NewStatus() *Status {
	return &Status{results: make(map[string]PingResult)}
}

// Reset drops every entry. It is called at the start of a tick.
func (s *Status) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = make(map[string]PingResult)
}

// Record stores the outcome for result.Host.
func (s *Status) Record(result PingResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.Host] = result
}

// AllHealthy reports whether every recorded host succeeded.
func (s *Status) AllHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if !r.Success {
			return false
		}
	}
	return true
}

// Lookup returns the outcome for host and whether one is recorded.
func (s *Status) Lookup(host string) (PingResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[host]
	return r, ok
}

// Failing returns the failed hosts, sorted.
func (s *Status) Failing() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var hosts []string
	for host, r := range s.results {
		if !r.Success {
			hosts = append(hosts, host)
		}
	}
	sort.Strings(hosts)
	return hosts
}

// Snapshot returns a copy of every recorded outcome.
func (s *Status) Snapshot() map[string]PingResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]PingResult, len(s.results))
	for host, r := range s.results {
		out[host] = r
	}
	return out
}
