package controller

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/vyrodovalexey/ingressmonitor/internal/kube"
	"github.com/vyrodovalexey/ingressmonitor/internal/util"
)

// errForeignShadow marks an Ingress that has a shadow's name but is not
// managed by the reconciler.
var errForeignShadow = errors.New("ingress with the shadow name is not a shadow")

// ShadowIngressReconciler mirrors monitored Ingresses of a namespace into
// shadow Ingresses routed to one shared external Service. Requests are keyed
// by namespace: req.Name holds the namespace and req.Namespace is empty.
type ShadowIngressReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
	Options  Options
}

// +kubebuilder:rbac:groups=networking.k8s.io,resources=ingresses,verbs=get;list;watch;create;update
// +kubebuilder:rbac:groups="",resources=services,verbs=get;list;watch;create;update
// +kubebuilder:rbac:groups="",resources=namespaces,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch

// Reconcile converges one namespace. It is idempotent: a second run over an
// unchanged namespace issues no writes.
func (r *ShadowIngressReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	namespace := req.Name
	ctx, span := otel.Tracer(controllerTracerName).Start(ctx, "Reconcile.Namespace",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("k8s.namespace.name", namespace)),
	)
	defer span.End()

	timer := NewReconcileTimer(controllerName)
	metrics := GetControllerMetrics()
	logger := log.FromContext(ctx).WithValues("namespace", namespace)
	ctx = log.IntoContext(ctx, logger)
	logger.V(1).Info("reconciling namespace")

	parents, err := r.listParents(ctx, namespace)
	if err != nil {
		failSpan(span, err)
		timer.RecordError()
		return ctrl.Result{}, err
	}
	if len(parents) == 0 {
		logger.V(1).Info("no monitored ingresses in namespace")
		timer.RecordSuccess()
		return ctrl.Result{}, nil
	}
	span.SetAttributes(attribute.Int("ingressmonitor.parents", len(parents)))

	svc, namespaceMissing, err := r.ensureService(ctx, namespace, parents[0])
	if err != nil {
		r.recordFailure(parents, err)
		failSpan(span, err)
		timer.RecordError()
		return ctrl.Result{}, err
	}

	var errs []error
	shadows := make([]*networkingv1.Ingress, 0, len(parents))
	for _, parent := range parents {
		shadow, err := r.ensureShadow(ctx, parent)
		switch {
		case err == nil:
			shadows = append(shadows, shadow)
		case errors.Is(err, util.ErrLabelConflict), errors.Is(err, errForeignShadow):
			// Retrying cannot help until the parent or the foreign object changes.
			logger.Info("cannot mirror ingress", "ingress", parent.Name, "reason", err.Error())
			r.Recorder.Event(parent, corev1.EventTypeWarning, EventReasonShadowConflict, err.Error())
		default:
			logger.Error(err, "failed to ensure shadow ingress", "ingress", parent.Name)
			r.Recorder.Event(parent, corev1.EventTypeWarning, EventReasonReconcileFailed, err.Error())
			errs = append(errs, err)
		}
	}
	metrics.SetShadowCount(namespace, len(shadows))

	if svc != nil {
		if err := r.linkOwners(ctx, svc, shadows); err != nil {
			logger.Error(err, "failed to update service owner references")
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		failSpan(span, err)
		timer.RecordError()
		return ctrl.Result{}, err
	}

	if namespaceMissing {
		timer.RecordRequeue()
		return ctrl.Result{RequeueAfter: r.Options.requeueAfter()}, nil
	}

	timer.RecordSuccess()
	return ctrl.Result{}, nil
}

// listParents returns the cached Ingresses of namespace carrying the monitor
// label, excluding shadows.
func (r *ShadowIngressReconciler) listParents(ctx context.Context, namespace string) ([]*networkingv1.Ingress, error) {
	list := &networkingv1.IngressList{}
	if err := r.List(ctx, list,
		client.InNamespace(namespace),
		client.MatchingLabels{r.Options.MonitorLabel.Key: r.Options.MonitorLabel.Value},
	); err != nil {
		return nil, util.NewTransportFailureErrorWithCause("list ingresses in "+namespace, err)
	}

	parents := make([]*networkingv1.Ingress, 0, len(list.Items))
	for i := range list.Items {
		ing := &list.Items[i]
		if isShadow(r.Options, ing) || !ing.DeletionTimestamp.IsZero() {
			continue
		}
		parents = append(parents, ing)
	}
	return parents, nil
}

// ensureService returns the shared Service of namespace, creating it from
// the namespace labels when absent. When the namespace cannot be read the
// Service is not created and namespaceMissing is true.
func (r *ShadowIngressReconciler) ensureService(
	ctx context.Context,
	namespace string,
	eventTarget *networkingv1.Ingress,
) (svc *corev1.Service, namespaceMissing bool, err error) {
	logger := log.FromContext(ctx)
	key := types.NamespacedName{Namespace: namespace, Name: r.Options.ServiceName}

	svc = &corev1.Service{}
	err = r.Get(ctx, key, svc)
	if err == nil {
		return svc, false, nil
	}
	if !apierrors.IsNotFound(err) {
		return nil, false, util.FromAPIError("get service", serviceKind, namespace, key.Name, err)
	}

	ns := &corev1.Namespace{}
	if err := r.Get(ctx, types.NamespacedName{Name: namespace}, ns); err != nil {
		logger.Error(err, "unable to read namespace labels, skipping service creation")
		r.Recorder.Event(eventTarget, corev1.EventTypeWarning, EventReasonReconcileFailed,
			fmt.Sprintf("cannot read namespace %s: %v", namespace, util.FromAPIError("get namespace", namespaceKind, "", namespace, err)))
		return nil, true, nil
	}

	desired, err := buildService(r.Options, ns)
	if err != nil {
		return nil, false, err
	}

	err = r.Create(ctx, desired)
	switch {
	case err == nil:
		GetControllerMetrics().RecordWrite(serviceKind, OperationCreate)
		logger.Info("created service", "service", desired.Name)
		r.Recorder.Event(desired, corev1.EventTypeNormal, EventReasonServiceCreated,
			fmt.Sprintf("Created shared service %s/%s", namespace, desired.Name))
		return desired, false, nil
	case apierrors.IsAlreadyExists(err):
		// Created out of band since the cached read.
		if err := r.Get(ctx, key, svc); err != nil {
			return nil, false, util.FromAPIError("get service", serviceKind, namespace, key.Name, err)
		}
		return svc, false, nil
	default:
		return nil, false, util.FromAPIError("create service", serviceKind, namespace, key.Name, err)
	}
}

// ensureShadow creates the shadow of parent or repairs it when it drifted
// from the synthesized form. It returns the live shadow.
func (r *ShadowIngressReconciler) ensureShadow(ctx context.Context, parent *networkingv1.Ingress) (*networkingv1.Ingress, error) {
	logger := log.FromContext(ctx)

	desired, err := buildShadow(r.Options, parent)
	if err != nil {
		return nil, err
	}
	key := client.ObjectKeyFromObject(desired)

	existing := &networkingv1.Ingress{}
	err = r.Get(ctx, key, existing)
	switch {
	case apierrors.IsNotFound(err):
		createErr := r.Create(ctx, desired)
		if createErr == nil {
			GetControllerMetrics().RecordWrite(r.Options.ShadowKind, OperationCreate)
			logger.Info("created shadow ingress", "ingress", parent.Name, "shadow", desired.Name)
			r.Recorder.Event(parent, corev1.EventTypeNormal, EventReasonShadowCreated,
				fmt.Sprintf("Created shadow ingress %s", desired.Name))
			return desired, nil
		}
		if !apierrors.IsAlreadyExists(createErr) {
			return nil, util.FromAPIError("create ingress", r.Options.ShadowKind, key.Namespace, key.Name, createErr)
		}
		if err := r.Get(ctx, key, existing); err != nil {
			return nil, util.FromAPIError("get ingress", r.Options.ShadowKind, key.Namespace, key.Name, err)
		}
	case err != nil:
		return nil, util.FromAPIError("get ingress", r.Options.ShadowKind, key.Namespace, key.Name, err)
	}

	if !isShadow(r.Options, existing) {
		return nil, fmt.Errorf("%w: %s", errForeignShadow, key)
	}
	if shadowInSync(existing, desired, parent) {
		return existing, nil
	}

	existing.Labels = desired.Labels
	existing.Annotations = desired.Annotations
	existing.Spec = desired.Spec
	if !kube.HasOwnerUID(existing.OwnerReferences, parent.UID) {
		existing.OwnerReferences = append(existing.OwnerReferences, desired.OwnerReferences...)
	}
	if err := r.Update(ctx, existing); err != nil {
		return nil, util.FromAPIError("update ingress", r.Options.ShadowKind, key.Namespace, key.Name, err)
	}
	GetControllerMetrics().RecordWrite(r.Options.ShadowKind, OperationUpdate)
	logger.Info("repaired shadow ingress", "ingress", parent.Name, "shadow", existing.Name)
	r.Recorder.Event(parent, corev1.EventTypeNormal, EventReasonShadowUpdated,
		fmt.Sprintf("Updated shadow ingress %s", existing.Name))
	return existing, nil
}

// shadowInSync compares the fields the reconciler owns.
func shadowInSync(existing, desired, parent *networkingv1.Ingress) bool {
	return equality.Semantic.DeepEqual(existing.Labels, desired.Labels) &&
		equality.Semantic.DeepEqual(existing.Annotations, desired.Annotations) &&
		equality.Semantic.DeepEqual(existing.Spec, desired.Spec) &&
		kube.HasOwnerUID(existing.OwnerReferences, parent.UID)
}

// linkOwners makes every ensured shadow an owner of svc. References are
// deduplicated by UID and shadow references are pruned once the shadow is
// absent from the cache. The Service is written only when the list changes.
func (r *ShadowIngressReconciler) linkOwners(ctx context.Context, svc *corev1.Service, shadows []*networkingv1.Ingress) error {
	present, err := r.presentShadows(ctx, svc.Namespace)
	if err != nil {
		return err
	}
	for _, shadow := range shadows {
		present[shadow.UID] = struct{}{}
	}

	refs := kube.DedupOwnerReferences(svc.OwnerReferences)
	pruned := make([]metav1.OwnerReference, 0, len(refs)+len(shadows))
	for _, ref := range refs {
		if r.isShadowRef(ref) {
			if _, ok := present[ref.UID]; !ok {
				continue
			}
		}
		pruned = append(pruned, ref)
	}
	for _, shadow := range shadows {
		if kube.HasOwnerUID(pruned, shadow.UID) {
			continue
		}
		pruned = append(pruned, kube.OwnerReference{
			Kind:       r.Options.ShadowKind,
			APIVersion: r.Options.ShadowAPIVersion,
			Name:       shadow.Name,
			UID:        shadow.UID,
		}.Meta())
	}

	if equality.Semantic.DeepEqual(pruned, svc.OwnerReferences) {
		return nil
	}

	updated := svc.DeepCopy()
	updated.OwnerReferences = pruned
	if err := r.Update(ctx, updated); err != nil {
		err = util.FromAPIError("update service", serviceKind, svc.Namespace, svc.Name, err)
		if util.IsIdempotentCondition(err) {
			// Deleted since the cached read; the Service watch requeues the namespace.
			log.FromContext(ctx).V(1).Info("service vanished before owner update", "service", svc.Name)
			return nil
		}
		return err
	}
	GetControllerMetrics().RecordWrite(serviceKind, OperationUpdate)
	log.FromContext(ctx).Info("updated service owner references", "service", svc.Name, "owners", len(pruned))
	r.Recorder.Event(updated, corev1.EventTypeNormal, EventReasonOwnersUpdated,
		fmt.Sprintf("Service is owned by %d shadow ingresses", len(pruned)))
	return nil
}

// presentShadows returns the UIDs of the cached shadows in namespace.
func (r *ShadowIngressReconciler) presentShadows(ctx context.Context, namespace string) (map[types.UID]struct{}, error) {
	list := &networkingv1.IngressList{}
	if err := r.List(ctx, list,
		client.InNamespace(namespace),
		client.MatchingLabels{r.Options.ShadowLabel.Key: r.Options.ShadowLabel.Value},
	); err != nil {
		return nil, util.NewTransportFailureErrorWithCause("list shadow ingresses in "+namespace, err)
	}
	present := make(map[types.UID]struct{}, len(list.Items))
	for i := range list.Items {
		present[list.Items[i].UID] = struct{}{}
	}
	return present, nil
}

func (r *ShadowIngressReconciler) isShadowRef(ref metav1.OwnerReference) bool {
	return ref.Kind == r.Options.ShadowKind && ref.APIVersion == r.Options.ShadowAPIVersion
}

func (r *ShadowIngressReconciler) recordFailure(parents []*networkingv1.Ingress, err error) {
	for _, parent := range parents {
		r.Recorder.Event(parent, corev1.EventTypeWarning, EventReasonReconcileFailed, err.Error())
	}
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Int("ingressmonitor.status_code", util.StatusCodeOf(err)))
}
