// Package hashing provides the content digest used as the dedup key and the
// random identifiers used for storage keys and share tokens.
package hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ContentDigest returns the hex sha256 of the raw (uncompressed) bytes.
// Dedup is content-based: the declared filename and MIME type never
// participate in the digest.
func ContentDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// RandomHex returns n random bytes as a hex string. Used for storage keys
// and share tokens, which must not be guessable or sequential.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
