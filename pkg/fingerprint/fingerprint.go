// Package fingerprint computes content digests for stored inventory
// snapshots. Equal bytes always give equal digests, so a digest doubles as an
// idempotency key.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Size is the length of a hex digest.
const Size = blake2b.Size256 * 2

// Sum returns the hex BLAKE2b-256 digest of data.
func Sum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SumString is Sum for strings.
func SumString(s string) string {
	return Sum([]byte(s))
}

// SumReader digests everything read from r.
func SumReader(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Valid reports whether s looks like a digest produced by this package.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
