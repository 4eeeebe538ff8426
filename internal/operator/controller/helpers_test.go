package controller

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"github.com/vyrodovalexey/ingressmonitor/internal/kube"
)

const testNamespace = "ns"

func newTestScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	_ = clientgoscheme.AddToScheme(scheme)
	return scheme
}

// fakeRecorder is a simple event recorder for testing.
type fakeRecorder struct {
	events []string
	mu     sync.Mutex
}

func (r *fakeRecorder) Event(object runtime.Object, eventtype, reason, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventtype+"/"+reason+": "+message)
}

func (r *fakeRecorder) Eventf(object runtime.Object, eventtype, reason, messageFmt string, args ...interface{}) {
	r.Event(object, eventtype, reason, messageFmt)
}

func (r *fakeRecorder) AnnotatedEventf(object runtime.Object, annotations map[string]string, eventtype, reason, messageFmt string, args ...interface{}) {
	r.Event(object, eventtype, reason, messageFmt)
}

func (r *fakeRecorder) getEvents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]string, len(r.events))
	copy(result, r.events)
	return result
}

func (r *fakeRecorder) hasReason(reason string) bool {
	for _, e := range r.getEvents() {
		if strings.Contains(e, "/"+reason+":") {
			return true
		}
	}
	return false
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{events: make([]string, 0)}
}

// writeCounter counts create and update calls passing through the fake client.
type writeCounter struct {
	creates atomic.Int32
	updates atomic.Int32
}

func (w *writeCounter) total() int {
	return int(w.creates.Load() + w.updates.Load())
}

func (w *writeCounter) reset() {
	w.creates.Store(0)
	w.updates.Store(0)
}

// countingFuncs returns interceptors that count writes and assign a UID on
// create, as the API server would.
func countingFuncs(w *writeCounter) interceptor.Funcs {
	return interceptor.Funcs{
		Create: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.CreateOption) error {
			w.creates.Add(1)
			if obj.GetUID() == "" {
				obj.SetUID(types.UID(uuid.NewString()))
			}
			return c.Create(ctx, obj, opts...)
		},
		Update: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.UpdateOption) error {
			w.updates.Add(1)
			return c.Update(ctx, obj, opts...)
		},
	}
}

// testOptions mirrors the scenario naming: monitor=true parents, the
// external-svc Service and the -external shadow suffix.
func testOptions() Options {
	return Options{
		MonitorLabel:            kube.Label{Key: "monitor", Value: "true"},
		ShadowLabel:             kube.Label{Key: "uptime", Value: "external"},
		ShadowNameSuffix:        "-external",
		ShadowPath:              "/",
		ShadowKind:              "Ingress",
		ShadowAPIVersion:        "networking.k8s.io/v1",
		ServiceLabel:            kube.Label{Key: "uptime", Value: "external"},
		ServiceName:             "external-svc",
		ServiceExternalName:     "monitor.example.com",
		ServicePort:             80,
		ServiceType:             corev1.ServiceTypeExternalName,
		MaxConcurrentReconciles: 1,
	}
}

func newNamespace(name string, labels map[string]string) *corev1.Namespace {
	return &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels}}
}

func newParent(name, host string) *networkingv1.Ingress {
	pathType := networkingv1.PathTypePrefix
	return &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Namespace:   testNamespace,
			UID:         types.UID(name + "-uid"),
			Labels:      map[string]string{"monitor": "true", "app": name},
			Annotations: map[string]string{"dolittle.io/uptime-ping": "true"},
		},
		Spec: networkingv1.IngressSpec{
			TLS: []networkingv1.IngressTLS{{SecretName: name + "-tls", Hosts: []string{host}}},
			Rules: []networkingv1.IngressRule{{
				Host: host,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/",
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: name,
									Port: networkingv1.ServiceBackendPort{Number: 8080},
								},
							},
						}},
					},
				},
			}},
		},
	}
}

type testEnv struct {
	client   client.Client
	recorder *fakeRecorder
	writes   *writeCounter
	r        *ShadowIngressReconciler
}

func newTestEnv(t *testing.T, funcs *interceptor.Funcs, objs ...client.Object) *testEnv {
	t.Helper()

	scheme := newTestScheme()
	writes := &writeCounter{}
	f := countingFuncs(writes)
	if funcs != nil {
		f = chainFuncs(f, *funcs)
	}
	c := fake.NewClientBuilder().
		WithScheme(scheme).
		WithObjects(objs...).
		WithInterceptorFuncs(f).
		Build()

	recorder := newFakeRecorder()
	return &testEnv{
		client:   c,
		recorder: recorder,
		writes:   writes,
		r: &ShadowIngressReconciler{
			Client:   c,
			Scheme:   scheme,
			Recorder: recorder,
			Options:  testOptions(),
		},
	}
}

// baseClient routes writes through the hooks of funcs, so an override that
// passes a call on to its client is still counted.
type baseClient struct {
	client.WithWatch
	funcs interceptor.Funcs
}

func (b baseClient) Create(ctx context.Context, obj client.Object, opts ...client.CreateOption) error {
	return b.funcs.Create(ctx, b.WithWatch, obj, opts...)
}

func (b baseClient) Update(ctx context.Context, obj client.Object, opts ...client.UpdateOption) error {
	return b.funcs.Update(ctx, b.WithWatch, obj, opts...)
}

// chainFuncs lets override handle the hooks it sets. The client handed to
// override applies base, so each write runs through base exactly once.
func chainFuncs(base, override interceptor.Funcs) interceptor.Funcs {
	out := base
	if override.Create != nil {
		out.Create = func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.CreateOption) error {
			return override.Create(ctx, baseClient{WithWatch: c, funcs: base}, obj, opts...)
		}
	}
	if override.Update != nil {
		out.Update = func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.UpdateOption) error {
			return override.Update(ctx, baseClient{WithWatch: c, funcs: base}, obj, opts...)
		}
	}
	if override.Get != nil {
		out.Get = override.Get
	}
	if override.List != nil {
		out.List = override.List
	}
	return out
}

func (e *testEnv) reconcile(t *testing.T) (ctrl.Result, error) {
	t.Helper()
	return e.r.Reconcile(context.Background(), ctrl.Request{
		NamespacedName: types.NamespacedName{Name: testNamespace},
	})
}

func (e *testEnv) getService(t *testing.T) *corev1.Service {
	t.Helper()
	svc := &corev1.Service{}
	if err := e.client.Get(context.Background(), types.NamespacedName{Namespace: testNamespace, Name: "external-svc"}, svc); err != nil {
		t.Fatalf("get service: %v", err)
	}
	return svc
}

func (e *testEnv) getIngress(t *testing.T, name string) *networkingv1.Ingress {
	t.Helper()
	ing := &networkingv1.Ingress{}
	if err := e.client.Get(context.Background(), types.NamespacedName{Namespace: testNamespace, Name: name}, ing); err != nil {
		t.Fatalf("get ingress %s: %v", name, err)
	}
	return ing
}
