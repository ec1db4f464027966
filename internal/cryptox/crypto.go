// Package cryptox holds the hashing helpers used to identify content.
package cryptox

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Digest returns the hex blake2b-256 of parts. Each part is terminated by a
// zero byte, so ("ab", "") and ("a", "b") hash differently.
//
// Example:
//
//	fp := cryptox.Digest([]byte("requests"), []byte(uuid), local, remote)
func Digest(parts ...[]byte) string {
	// New256 only fails for keys longer than 64 bytes.
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether digest is the Digest of parts.
func Verify(digest string, parts ...[]byte) bool {
	return Digest(parts...) == digest
}
