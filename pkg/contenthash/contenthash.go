// Package contenthash provides the deterministic content fingerprint used by
// the optimistic-concurrency integrity check. The same function runs at plan
// time and at apply time, so the digest format is part of the fix wire
// contract and must not change.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// EmptyHash is the digest of the empty string.
const EmptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Hash returns the SHA-256 digest of the exact UTF-8 bytes of s, rendered as
// 64 lowercase hex digits. No normalization is applied.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// IsDigest reports whether s is a well-formed digest as produced by Hash.
func IsDigest(s string) bool {
	return hexDigest.MatchString(s)
}
