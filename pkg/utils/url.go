package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashURL creates a SHA256 hash of a URL string.
// This is useful for creating consistent, safe keys for Redis and
// document IDs.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}

// RecordKey identifies one input URL within one run.
func RecordKey(runID, rawURL string) string {
	return runID + ":" + HashURL(rawURL)
}
