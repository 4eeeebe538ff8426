// Package kube holds the immutable cluster data model used by the monitor:
// label and annotation sets, Ingress records, owner references, and the
// conversions from networking.k8s.io/v1 objects.
//
// Records are value types. A new record is built for every cluster event and
// callers compare records by Key, never by address.
package kube
