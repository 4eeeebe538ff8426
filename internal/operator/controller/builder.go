package controller

import (
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/vyrodovalexey/ingressmonitor/internal/kube"
)

// buildShadow synthesizes the shadow of parent. Its labels are the
// parent's labels plus the shadow label, which fails when the parent
// already uses the shadow key. The monitor label is dropped only when it
// shares its key with the shadow label.
func buildShadow(opts Options, parent *networkingv1.Ingress) (*networkingv1.Ingress, error) {
	labels := kube.NewLabelSet(parent.Labels)
	if opts.MonitorLabel.Key == opts.ShadowLabel.Key {
		labels = labels.Without(opts.MonitorLabel.Key)
	}
	labels, err := labels.Add(opts.ShadowLabel)
	if err != nil {
		return nil, err
	}

	owner := kube.OwnerReference{
		Kind:       opts.ShadowKind,
		APIVersion: opts.ShadowAPIVersion,
		Name:       parent.Name,
		UID:        parent.UID,
		Controller: true,
	}

	pathType := networkingv1.PathTypePrefix
	rules := make([]networkingv1.IngressRule, 0, len(parent.Spec.Rules))
	for _, rule := range parent.Spec.Rules {
		rules = append(rules, networkingv1.IngressRule{
			Host: rule.Host,
			IngressRuleValue: networkingv1.IngressRuleValue{
				HTTP: &networkingv1.HTTPIngressRuleValue{
					Paths: []networkingv1.HTTPIngressPath{{
						Path:     opts.ShadowPath,
						PathType: &pathType,
						Backend: networkingv1.IngressBackend{
							Service: &networkingv1.IngressServiceBackend{
								Name: opts.ServiceName,
								Port: networkingv1.ServiceBackendPort{Number: opts.ServicePort},
							},
						},
					}},
				},
			},
		})
	}

	spec := networkingv1.IngressSpec{Rules: rules}
	if len(parent.Spec.TLS) > 0 {
		spec.TLS = make([]networkingv1.IngressTLS, len(parent.Spec.TLS))
		for i := range parent.Spec.TLS {
			parent.Spec.TLS[i].DeepCopyInto(&spec.TLS[i])
		}
	}
	switch {
	case opts.ShadowClassName != "":
		className := opts.ShadowClassName
		spec.IngressClassName = &className
	case parent.Spec.IngressClassName != nil:
		className := *parent.Spec.IngressClassName
		spec.IngressClassName = &className
	}

	return &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:            opts.ShadowName(parent.Name),
			Namespace:       parent.Namespace,
			Labels:          labels.Map(),
			Annotations:     kube.NewAnnotationSet(parent.Annotations).Map(),
			OwnerReferences: []metav1.OwnerReference{owner.Meta()},
		},
		Spec: spec,
	}, nil
}

// buildService synthesizes the shared Service of namespace ns. Its labels
// are the namespace labels without the service key plus the service label.
func buildService(opts Options, ns *corev1.Namespace) (*corev1.Service, error) {
	labels, err := kube.NewLabelSet(ns.Labels).
		Without(opts.ServiceLabel.Key).
		Add(opts.ServiceLabel)
	if err != nil {
		return nil, err
	}

	spec := corev1.ServiceSpec{
		Type: opts.ServiceType,
		Ports: []corev1.ServicePort{{
			Name:     servicePortName,
			Port:     opts.ServicePort,
			Protocol: corev1.ProtocolTCP,
		}},
	}
	if opts.ServiceType == corev1.ServiceTypeExternalName {
		spec.ExternalName = opts.ServiceExternalName
	}

	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      opts.ServiceName,
			Namespace: ns.Name,
			Labels:    labels.Map(),
		},
		Spec: spec,
	}, nil
}

// isShadow reports whether ing carries the shadow label.
func isShadow(opts Options, ing *networkingv1.Ingress) bool {
	return kube.NewLabelSet(ing.Labels).Contains(opts.ShadowLabel)
}
