package kube

import (
	"maps"
	"slices"

	"github.com/vyrodovalexey/ingressmonitor/internal/util"
)

// Label is a single metadata label.
type Label struct {
	Key   string
	Value string
}

// String renders the label as key=value.
func (l Label) String() string {
	return l.Key + "=" + l.Value
}

// LabelSet is an immutable collection of labels keyed by label key.
// The zero value is an empty set.
type LabelSet struct {
	entries map[string]string
}

// NewLabelSet copies m into a new set.
func NewLabelSet(m map[string]string) LabelSet {
	if len(m) == 0 {
		return LabelSet{}
	}
	return LabelSet{entries: maps.Clone(m)}
}

// Add returns a new set holding the receiver's labels plus labels. Adding a
// key already present fails with a LabelConflictError. Adding nothing
// returns the receiver unchanged.
func (s LabelSet) Add(labels ...Label) (LabelSet, error) {
	if len(labels) == 0 {
		return s, nil
	}
	next := make(map[string]string, len(s.entries)+len(labels))
	maps.Copy(next, s.entries)
	for _, l := range labels {
		if _, exists := next[l.Key]; exists {
			return s, util.NewLabelConflictError(l.Key)
		}
		next[l.Key] = l.Value
	}
	return LabelSet{entries: next}, nil
}

// Without returns a set with key removed.
func (s LabelSet) Without(key string) LabelSet {
	if _, ok := s.entries[key]; !ok {
		return s
	}
	next := maps.Clone(s.entries)
	delete(next, key)
	return LabelSet{entries: next}
}

// Get returns the value stored for key.
func (s LabelSet) Get(key string) (string, bool) {
	v, ok := s.entries[key]
	return v, ok
}

// Contains reports whether the set holds l with the same value.
func (s LabelSet) Contains(l Label) bool {
	v, ok := s.entries[l.Key]
	return ok && v == l.Value
}

// Len returns the number of labels.
func (s LabelSet) Len() int {
	return len(s.entries)
}

// Keys returns the label keys in sorted order.
func (s LabelSet) Keys() []string {
	return slices.Sorted(maps.Keys(s.entries))
}

// Map returns a copy of the labels suitable for object metadata. An empty set
// yields nil.
func (s LabelSet) Map() map[string]string {
	if len(s.entries) == 0 {
		return nil
	}
	return maps.Clone(s.entries)
}

// Annotation is a single metadata annotation.
type Annotation struct {
	Key   string
	Value string
}

// AnnotationSet is an immutable collection of annotations keyed by key.
type AnnotationSet struct {
	entries map[string]string
}

// NewAnnotationSet copies m into a new set.
func NewAnnotationSet(m map[string]string) AnnotationSet {
	if len(m) == 0 {
		return AnnotationSet{}
	}
	return AnnotationSet{entries: maps.Clone(m)}
}

// Add returns a new set with annotations appended. Existing keys conflict.
func (s AnnotationSet) Add(annotations ...Annotation) (AnnotationSet, error) {
	if len(annotations) == 0 {
		return s, nil
	}
	next := make(map[string]string, len(s.entries)+len(annotations))
	maps.Copy(next, s.entries)
	for _, a := range annotations {
		if _, exists := next[a.Key]; exists {
			return s, util.NewLabelConflictError(a.Key)
		}
		next[a.Key] = a.Value
	}
	return AnnotationSet{entries: next}, nil
}

// Get returns the value stored for key.
func (s AnnotationSet) Get(key string) (string, bool) {
	v, ok := s.entries[key]
	return v, ok
}

// Len returns the number of annotations.
func (s AnnotationSet) Len() int {
	return len(s.entries)
}

// Map returns a copy of the annotations. An empty set yields nil.
func (s AnnotationSet) Map() map[string]string {
	if len(s.entries) == 0 {
		return nil
	}
	return maps.Clone(s.entries)
}

// AnnotationSelector matches annotation sets. Key and value must both be
// equal; a selector without a value matches only an empty annotation value.
type AnnotationSelector struct {
	Key      string
	Value    string
	HasValue bool
}

// Matches reports whether set satisfies the selector.
func (a AnnotationSelector) Matches(set AnnotationSet) bool {
	v, ok := set.Get(a.Key)
	return ok && v == a.Value
}

// String renders the selector as key or key:value.
func (a AnnotationSelector) String() string {
	if !a.HasValue {
		return a.Key
	}
	return a.Key + ":" + a.Value
}
