package pinger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/vyrodovalexey/ingressmonitor/internal/kube"
	"github.com/vyrodovalexey/ingressmonitor/internal/stream"
)

const pingAnnotation = "dolittle.io/uptime-ping"

func annotatedIngress(name, host string, annotated bool) *networkingv1.Ingress {
	ing := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{Namespace: "ns", Name: name},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{{
				Host: host,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{Path: "/"}},
					},
				},
			}},
		},
	}
	if annotated {
		ing.Annotations = map[string]string{pingAnnotation: ""}
	}
	return ing
}

func newIngressProjector() *stream.Projector[*networkingv1.Ingress, kube.IngressRecord] {
	selector := kube.AnnotationSelector{Key: pingAnnotation}
	return stream.NewProjector(
		kube.FromIngress,
		func(r kube.IngressRecord) string { return r.Key().String() },
		stream.WithPredicate[*networkingv1.Ingress](func(r kube.IngressRecord) bool {
			return selector.Matches(r.Annotations)
		}),
	)
}

func hosts(targets []PingTarget) []string {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		out = append(out, t.Host)
	}
	return out
}

func TestHostAggregator_FollowsProjector(t *testing.T) {
	t.Parallel()

	projector := newIngressProjector()
	agg := NewHostAggregator(nil)
	assert.Empty(t, agg.Targets())

	app := annotatedIngress("app", "a.example.com", true)
	projector.OnAdd(app, false)
	unsubscribe := projector.Subscribe(agg.Update)
	defer unsubscribe()

	// Replayed on subscription.
	assert.Equal(t, []string{"a.example.com"}, hosts(agg.Targets()))

	projector.OnAdd(annotatedIngress("api", "api.example.com", true), false)
	projector.OnAdd(annotatedIngress("plain", "plain.example.com", false), false)
	assert.Equal(t, []string{"a.example.com", "api.example.com"}, hosts(agg.Targets()))

	// Dropping the annotation removes the hosts from the next snapshot.
	projector.OnUpdate(app, annotatedIngress("app", "a.example.com", false))
	assert.Equal(t, []string{"api.example.com"}, hosts(agg.Targets()))
}

func TestHostAggregator_TargetsAreCopies(t *testing.T) {
	t.Parallel()

	agg := NewHostAggregator(nil)
	agg.Update([]kube.IngressRecord{{
		Namespace: "ns", Name: "app",
		Rules: []kube.HostRule{{Host: "a.example.com"}},
	}})

	targets := agg.Targets()
	require.Len(t, targets, 1)
	targets[0].Host = "changed"
	assert.Equal(t, "a.example.com", agg.Targets()[0].Host)
}
