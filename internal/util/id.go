package util

import (
	"crypto/rand"
	"encoding/hex"
)

// idBytes of entropy; hex-encoded the ID is twice as long.
const idBytes = 12

// NewID returns a random hex identifier. Used for user record IDs and
// request correlation.
func NewID() string {
	b := make([]byte, idBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
