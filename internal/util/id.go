package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns an opaque URL-safe hex identifier. Used for record ids
// and session ids; never reused.
func NewID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
