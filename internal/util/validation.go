package util

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/validation"
)

// reservedKeyPrefixes are label and annotation prefixes owned by Kubernetes.
var reservedKeyPrefixes = []string{"k8s.io/", "kubernetes.io/"}

// ValidatePort validates a port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", port)
	}
	return nil
}

// ValidatePositiveDuration validates that a duration is greater than zero.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got: %v", d)
	}
	return nil
}

// ValidateNonEmpty validates that a string value is set.
func ValidateNonEmpty(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

// ValidateMetadataKey validates a label or annotation key of the form
// [prefix/]name. The prefix must be a DNS subdomain that is not reserved by
// Kubernetes and the name must be a qualified name of at most 63 characters.
func ValidateMetadataKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	for _, reserved := range reservedKeyPrefixes {
		if strings.HasPrefix(key, reserved) {
			return fmt.Errorf("key %q uses the reserved prefix %q", key, reserved)
		}
	}

	prefix, name, hasPrefix := strings.Cut(key, "/")
	if !hasPrefix {
		name, prefix = prefix, ""
	}
	if name == "" {
		return fmt.Errorf("key %q has no name", key)
	}
	if hasPrefix {
		if msgs := validation.IsDNS1123Subdomain(prefix); len(msgs) > 0 {
			return fmt.Errorf("key %q has an invalid prefix: %s", key, strings.Join(msgs, "; "))
		}
	}
	if msgs := validation.IsQualifiedName(name); len(msgs) > 0 {
		return fmt.Errorf("key %q has an invalid name: %s", key, strings.Join(msgs, "; "))
	}
	return nil
}

// ValidateLabelValue validates a label value.
func ValidateLabelValue(value string) error {
	if msgs := validation.IsValidLabelValue(value); len(msgs) > 0 {
		return fmt.Errorf("invalid label value %q: %s", value, strings.Join(msgs, "; "))
	}
	return nil
}

// ValidatePath validates a URL path used for probing. It must be non-empty,
// start with a slash and must not be a full URL. Escaped characters are
// allowed.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path %q must start with /", path)
	}
	if strings.HasPrefix(path, "//") {
		return fmt.Errorf("path %q must not be a URL", path)
	}
	parsed, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", path, err)
	}
	if parsed.Scheme != "" || parsed.Host != "" {
		return fmt.Errorf("path %q must not be a URL", path)
	}
	return nil
}

// ValidateHostname validates a DNS hostname as used in Ingress rules.
// A leading wildcard label is accepted.
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return fmt.Errorf("hostname cannot be empty")
	}
	candidate := strings.TrimPrefix(hostname, "*.")
	if msgs := validation.IsDNS1123Subdomain(candidate); len(msgs) > 0 {
		return fmt.Errorf("invalid hostname %q: %s", hostname, strings.Join(msgs, "; "))
	}
	return nil
}
