package kube

import (
	"strconv"

	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/types"
)

// ResourceKey identifies a namespaced object.
type ResourceKey struct {
	Namespace string
	Name      string
}

// String renders the key as namespace/name.
func (k ResourceKey) String() string {
	return k.Namespace + "/" + k.Name
}

// BackendPort is a service port referenced by number or by name.
type BackendPort struct {
	Number int32
	Name   string
}

// String renders the port number, or its name when no number is set.
func (p BackendPort) String() string {
	if p.Number != 0 {
		return strconv.Itoa(int(p.Number))
	}
	return p.Name
}

// PathRule routes a path to a backend service.
type PathRule struct {
	Path        string
	ServiceName string
	Port        BackendPort
}

// HostRule groups the path rules of one hostname.
type HostRule struct {
	Host  string
	Paths []PathRule
}

// TLSBinding attaches a certificate secret to a list of hostnames.
type TLSBinding struct {
	SecretName string
	Hosts      []string
}

// IngressRecord is an immutable snapshot of an Ingress.
type IngressRecord struct {
	Namespace   string
	Name        string
	UID         types.UID
	ClassName   string
	Labels      LabelSet
	Annotations AnnotationSet
	TLS         []TLSBinding
	Rules       []HostRule
}

// Key returns the namespace/name identity of the record.
func (r IngressRecord) Key() ResourceKey {
	return ResourceKey{Namespace: r.Namespace, Name: r.Name}
}

// TLSHosts returns the set of hostnames covered by any TLS binding.
func (r IngressRecord) TLSHosts() map[string]bool {
	hosts := make(map[string]bool)
	for _, tls := range r.TLS {
		for _, host := range tls.Hosts {
			hosts[host] = true
		}
	}
	return hosts
}

// FromIngress converts a networking/v1 Ingress into a record. The returned
// record shares no memory with ing.
func FromIngress(ing *networkingv1.Ingress) IngressRecord {
	record := IngressRecord{
		Namespace:   ing.Namespace,
		Name:        ing.Name,
		UID:         ing.UID,
		Labels:      NewLabelSet(ing.Labels),
		Annotations: NewAnnotationSet(ing.Annotations),
	}
	if ing.Spec.IngressClassName != nil {
		record.ClassName = *ing.Spec.IngressClassName
	}

	if len(ing.Spec.TLS) > 0 {
		record.TLS = make([]TLSBinding, 0, len(ing.Spec.TLS))
		for _, tls := range ing.Spec.TLS {
			record.TLS = append(record.TLS, TLSBinding{
				SecretName: tls.SecretName,
				Hosts:      append([]string(nil), tls.Hosts...),
			})
		}
	}

	if len(ing.Spec.Rules) > 0 {
		record.Rules = make([]HostRule, 0, len(ing.Spec.Rules))
		for _, rule := range ing.Spec.Rules {
			record.Rules = append(record.Rules, convertRule(rule))
		}
	}

	return record
}

func convertRule(rule networkingv1.IngressRule) HostRule {
	hr := HostRule{Host: rule.Host}
	if rule.HTTP == nil {
		return hr
	}
	hr.Paths = make([]PathRule, 0, len(rule.HTTP.Paths))
	for _, p := range rule.HTTP.Paths {
		pr := PathRule{Path: p.Path}
		if svc := p.Backend.Service; svc != nil {
			pr.ServiceName = svc.Name
			pr.Port = BackendPort{Number: svc.Port.Number, Name: svc.Port.Name}
		}
		hr.Paths = append(hr.Paths, pr)
	}
	return hr
}
