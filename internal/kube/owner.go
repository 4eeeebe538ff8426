package kube

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
)

// OwnerReference is a garbage-collection back-reference from a dependent
// object to the object it was created for.
type OwnerReference struct {
	Kind       string
	APIVersion string
	Name       string
	UID        types.UID
	Controller bool
}

// Meta converts the reference to its API form.
func (o OwnerReference) Meta() metav1.OwnerReference {
	controller := o.Controller
	return metav1.OwnerReference{
		APIVersion: o.APIVersion,
		Kind:       o.Kind,
		Name:       o.Name,
		UID:        o.UID,
		Controller: &controller,
	}
}

// DedupOwnerReferences returns refs with later duplicates of an already seen
// UID removed. Order is preserved.
func DedupOwnerReferences(refs []metav1.OwnerReference) []metav1.OwnerReference {
	if len(refs) == 0 {
		return refs
	}
	seen := make(map[types.UID]struct{}, len(refs))
	out := make([]metav1.OwnerReference, 0, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref.UID]; dup {
			continue
		}
		seen[ref.UID] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// HasOwnerUID reports whether refs contains a reference with uid.
func HasOwnerUID(refs []metav1.OwnerReference, uid types.UID) bool {
	for _, ref := range refs {
		if ref.UID == uid {
			return true
		}
	}
	return false
}
