package config

import (
	"strings"

	"github.com/vyrodovalexey/ingressmonitor/internal/kube"
	"github.com/vyrodovalexey/ingressmonitor/internal/util"
)

// ParseLabelProperty parses a key=value label property.
func ParseLabelProperty(field, s string) (kube.Label, error) {
	key, value, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok {
		return kube.Label{}, util.NewConfigError(field, "label must be of the form key=value")
	}
	if err := util.ValidateMetadataKey(key); err != nil {
		return kube.Label{}, util.NewConfigErrorWithCause(field, "invalid label key", err)
	}
	if err := util.ValidateLabelValue(value); err != nil {
		return kube.Label{}, util.NewConfigErrorWithCause(field, "invalid label value", err)
	}
	return kube.Label{Key: key, Value: value}, nil
}

// ParseAnnotationProperty parses a key[:value] annotation property. The
// separator is the first colon after the key, so values may contain colons.
func ParseAnnotationProperty(field, s string) (kube.AnnotationSelector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return kube.AnnotationSelector{}, util.NewConfigError(field, "annotation cannot be empty")
	}
	key, value, hasValue := strings.Cut(s, ":")
	if err := util.ValidateMetadataKey(key); err != nil {
		return kube.AnnotationSelector{}, util.NewConfigErrorWithCause(field, "invalid annotation key", err)
	}
	return kube.AnnotationSelector{Key: key, Value: value, HasValue: hasValue}, nil
}

// ParsePathProperty validates a probe or backend path property.
func ParsePathProperty(field, s string) (string, error) {
	if err := util.ValidatePath(s); err != nil {
		return "", util.NewConfigErrorWithCause(field, "invalid path", err)
	}
	return s, nil
}
