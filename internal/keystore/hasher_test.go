package keystore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasher_ResponseKey(t *testing.T) {
	t.Parallel()

	h, err := NewHasher("salt")
	require.NoError(t, err)

	key := h.ResponseKey("token")
	assert.Len(t, key, 64)
	assert.Equal(t, key, h.ResponseKey("token"), "deterministic")
	assert.NotEqual(t, key, h.ResponseKey("token2"))

	other, err := NewHasher("pepper")
	require.NoError(t, err)
	assert.NotEqual(t, key, other.ResponseKey("token"), "salt changes the key")
}

func TestHasher_Matches(t *testing.T) {
	t.Parallel()

	h, err := NewHasher("")
	require.NoError(t, err)

	key := h.ResponseKey("token")
	assert.True(t, h.Matches("token", key))
	assert.False(t, h.Matches("token", strings.ToUpper(key)))
	assert.False(t, h.Matches("token", ""))
	assert.False(t, h.Matches("other", key))
}

func TestNewHasher_SaltTooLong(t *testing.T) {
	t.Parallel()

	_, err := NewHasher(strings.Repeat("s", 65))
	assert.Error(t, err)

	_, err = NewHasher(strings.Repeat("s", 64))
	assert.NoError(t, err)
}
