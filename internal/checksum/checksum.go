// Package checksum produces the "sha256:<hex>" digests prox-mesh logs in place
// of raw prompt and context text.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const prefix = "sha256:"

// SHA256Bytes computes the SHA256 hash of a byte slice and returns it as "sha256:hexstring"
func SHA256Bytes(data []byte) string {
	hash := sha256.Sum256(data)
	return prefix + hex.EncodeToString(hash[:])
}

// SHA256String is SHA256Bytes for text.
func SHA256String(s string) string {
	return SHA256Bytes([]byte(s))
}

// Short trims a digest to "sha256:" plus its first 12 hex characters.
// Values without the prefix are returned unchanged.
func Short(digest string) string {
	if !strings.HasPrefix(digest, prefix) || len(digest) < len(prefix)+12 {
		return digest
	}
	return digest[:len(prefix)+12]
}
