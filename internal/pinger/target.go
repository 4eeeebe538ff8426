package pinger

import (
	"net/url"
	"sort"

	"github.com/vyrodovalexey/ingressmonitor/internal/kube"
)

// defaultPath is probed for host rules without paths.
const defaultPath = "/"

// PingTarget is one probed host. Targets are unique by Host.
type PingTarget struct {
	Host   string `json:"host"`
	Path   string `json:"path"`
	UseTLS bool   `json:"tls"`
}

// URL returns the probe URL of the target.
func (t PingTarget) URL() string {
	scheme := "http"
	if t.UseTLS {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: t.Host, Path: t.Path}
	return u.String()
}

// FlattenTargets derives the probe targets of records. Each host rule
// yields a target with its first path; a host seen in an earlier rule or
// record keeps its first target. Rules without a host are skipped.
// The result is sorted by host.
func FlattenTargets(records []kube.IngressRecord) []PingTarget {
	seen := make(map[string]struct{})
	targets := make([]PingTarget, 0, len(records))
	for _, record := range records {
		tlsHosts := record.TLSHosts()
		for _, rule := range record.Rules {
			if rule.Host == "" {
				continue
			}
			if _, dup := seen[rule.Host]; dup {
				continue
			}
			seen[rule.Host] = struct{}{}

			path := defaultPath
			if len(rule.Paths) > 0 && rule.Paths[0].Path != "" {
				path = rule.Paths[0].Path
			}
			targets = append(targets, PingTarget{
				Host:   rule.Host,
				Path:   path,
				UseTLS: tlsHosts[rule.Host],
			})
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Host < targets[j].Host })
	return targets
}
