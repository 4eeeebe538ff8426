package util

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateMetadataKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "simple name", key: "hawking"},
		{name: "prefixed name", key: "stephen.io/hawking"},
		{name: "empty", key: "", wantErr: true},
		{name: "k8s.io prefix", key: "k8s.io/hawking", wantErr: true},
		{name: "kubernetes.io prefix", key: "kubernetes.io/hawking", wantErr: true},
		{name: "missing name", key: "stephen.io/", wantErr: true},
		{name: "prefix too long", key: strings.Repeat("a", 254) + "/hawking", wantErr: true},
		{name: "name too long", key: "stephen.io/" + strings.Repeat("a", 64), wantErr: true},
		{name: "invalid characters", key: "stephen.io/haw king", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateMetadataKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "root", path: "/"},
		{name: "nested", path: "/uptime/ping"},
		{name: "escaped", path: "/a%20b"},
		{name: "empty", path: "", wantErr: true},
		{name: "relative", path: "ping", wantErr: true},
		{name: "full url", path: "https://example.com/ping", wantErr: true},
		{name: "scheme relative url", path: "//example.com/ping", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateHostname(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateHostname("a.example.com"))
	assert.NoError(t, ValidateHostname("*.example.com"))
	assert.Error(t, ValidateHostname(""))
	assert.Error(t, ValidateHostname("bad_host.example.com"))
}

func TestValidatePort(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidatePort(80))
	assert.NoError(t, ValidatePort(65535))
	assert.Error(t, ValidatePort(0))
	assert.Error(t, ValidatePort(70000))
}

func TestValidatePositiveDuration(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidatePositiveDuration(time.Second))
	assert.Error(t, ValidatePositiveDuration(0))
}

func TestValidateNonEmpty(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateNonEmpty("x", "name"))
	assert.EqualError(t, ValidateNonEmpty("  ", "name"), "name cannot be empty")
}

func TestValidateLabelValue(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateLabelValue("ping"))
	assert.NoError(t, ValidateLabelValue(""))
	assert.Error(t, ValidateLabelValue("not valid!"))
}
