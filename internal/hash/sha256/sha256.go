// Package sha256 derives snapshot object keys from page URLs.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements crawler.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex digest of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Key returns the digest of a URL string, used as the snapshot file name.
func (h *Hasher) Key(url string) string {
	digest, _ := h.Hash([]byte(url))
	return digest
}
