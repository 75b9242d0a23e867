// Package checksum fingerprints documents so a re-read can be told apart
// from the copy already applied.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// JSON returns the digest of the JSON encoding of v. Map keys are encoded
// sorted, so equal documents hash equally.
func JSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("checksum: encode: %w", err)
	}
	return Sum(data), nil
}
