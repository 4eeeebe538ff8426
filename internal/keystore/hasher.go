package keystore

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Hasher derives the response key a probed endpoint returns for a token.
// The key is the hex BLAKE2b-256 of the token keyed with a shared salt.
type Hasher struct {
	salt []byte
}

// NewHasher creates a hasher for salt. The salt may be empty and is at most
// blake2b.Size bytes.
func NewHasher(salt string) (*Hasher, error) {
	if len(salt) > blake2b.Size {
		return nil, fmt.Errorf("salt is %d bytes, at most %d allowed", len(salt), blake2b.Size)
	}
	return &Hasher{salt: []byte(salt)}, nil
}

// ResponseKey returns the response key for token.
func (h *Hasher) ResponseKey(token string) string {
	mac, err := blake2b.New256(h.salt)
	if err != nil {
		// Unreachable: the salt length is checked in NewHasher.
		panic(err)
	}
	_, _ = mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches reports whether key is the response key for token.
func (h *Hasher) Matches(token, key string) bool {
	expected := h.ResponseKey(token)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(key)) == 1
}
