// Package canonical produces the canonical JSON serialization used for
// event IDs and audit chain hashing: RFC 8785 (sorted keys, minimal
// separators, UTF-8, no NaN/Inf).
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Marshal serializes v to canonical JSON.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical: transform: %w", err)
	}
	return out, nil
}

// Bytes canonicalizes an already-serialized JSON document.
func Bytes(raw []byte) ([]byte, error) {
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical: transform: %w", err)
	}
	return out, nil
}

// EventID returns the sha256 hex digest of the canonical form of raw.
// Identical request bodies (up to key order and whitespace) always map
// to the same event ID.
func EventID(raw []byte) (string, error) {
	c, err := Bytes(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(c)
	return hex.EncodeToString(sum[:]), nil
}

// ChainHash links an audit row to its predecessor:
// sha256(prevHash || canonical(projection)). For the first row prevHash
// is the empty string.
func ChainHash(prevHash string, projection any) (string, error) {
	c, err := Marshal(projection)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(c)
	return hex.EncodeToString(h.Sum(nil)), nil
}
