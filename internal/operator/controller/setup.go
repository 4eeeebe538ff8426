package controller

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/vyrodovalexey/ingressmonitor/internal/kube"
)

// SetupWithManager registers the reconciler. Ingress and Service events are
// mapped to a request for their namespace, so one namespace is never
// reconciled concurrently with itself.
func (r *ShadowIngressReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		Named(controllerName).
		Watches(
			&networkingv1.Ingress{},
			handler.EnqueueRequestsFromMapFunc(namespaceRequest),
			builder.WithPredicates(r.ingressPredicate()),
		).
		Watches(
			&corev1.Service{},
			handler.EnqueueRequestsFromMapFunc(namespaceRequest),
			builder.WithPredicates(r.servicePredicate()),
		).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: r.Options.maxConcurrentReconciles(),
			RateLimiter: workqueue.NewTypedItemExponentialFailureRateLimiter[reconcile.Request](
				RateLimiterBaseDelay,
				RateLimiterMaxDelay,
			),
		}).
		Complete(r)
}

// namespaceRequest maps an object to the reconcile request of its namespace.
func namespaceRequest(_ context.Context, obj client.Object) []reconcile.Request {
	if obj.GetNamespace() == "" {
		return nil
	}
	return []reconcile.Request{{NamespacedName: types.NamespacedName{Name: obj.GetNamespace()}}}
}

// ingressPredicate admits Ingresses carrying the monitor or the shadow
// label. Updates pass when either side matches, so removing the monitor
// label still triggers a reconcile.
func (r *ShadowIngressReconciler) ingressPredicate() predicate.Predicate {
	matches := func(obj client.Object) bool {
		if obj == nil {
			return false
		}
		labels := kube.NewLabelSet(obj.GetLabels())
		return labels.Contains(r.Options.MonitorLabel) || labels.Contains(r.Options.ShadowLabel)
	}
	return predicate.Funcs{
		CreateFunc:  func(e event.CreateEvent) bool { return matches(e.Object) },
		DeleteFunc:  func(e event.DeleteEvent) bool { return matches(e.Object) },
		GenericFunc: func(e event.GenericEvent) bool { return matches(e.Object) },
		UpdateFunc: func(e event.UpdateEvent) bool {
			return matches(e.ObjectOld) || matches(e.ObjectNew)
		},
	}
}

// servicePredicate admits the shared Service of any namespace.
func (r *ShadowIngressReconciler) servicePredicate() predicate.Predicate {
	return predicate.NewPredicateFuncs(func(obj client.Object) bool {
		if obj.GetName() == r.Options.ServiceName {
			return true
		}
		return kube.NewLabelSet(obj.GetLabels()).Contains(r.Options.ServiceLabel)
	})
}
