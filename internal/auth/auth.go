// Package auth implements API key verification for the HTTP boundary.
//
// Two key shapes are accepted: the single global key configured at
// startup, and scoped keys of the form <prefix>.<token>.<secret> whose
// secret digest is stored in the api_keys table.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// ScopedKey is a parsed three-segment API key.
type ScopedKey struct {
	Prefix string
	Token  string
	Secret string
}

// ParseScopedKey splits a presented key into its segments. Keys must
// have exactly three non-empty dot-separated parts.
func ParseScopedKey(raw string) (ScopedKey, bool) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return ScopedKey{}, false
	}
	for _, p := range parts {
		if p == "" {
			return ScopedKey{}, false
		}
	}
	return ScopedKey{Prefix: parts[0], Token: parts[1], Secret: parts[2]}, true
}

// HashSecret returns the hex sha256 digest of a key secret. This is the
// value stored in api_keys.key_hash.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// SecureCompare reports whether two strings are equal without leaking
// position information through timing.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
