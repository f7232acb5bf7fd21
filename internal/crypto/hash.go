package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// hashedShape matches a lowercase hex SHA-256 digest
var hashedShape = regexp.MustCompile(`^[0-9a-f]{64}$`)

// HashPassword returns the lowercase hex SHA-256 digest of the input
func HashPassword(password string) string {
	digest := sha256.Sum256([]byte(password))
	return hex.EncodeToString(digest[:])
}

// IsHashed reports whether the input already has the shape of a
// SHA-256 hex digest. A plaintext password that happens to be 64 hex
// characters is indistinguishable from a digest and is treated as one.
func IsHashed(password string) bool {
	return hashedShape.MatchString(password)
}

// EnsureHashed normalizes password material for storage or comparison:
// an already-hashed value passes through unchanged, anything else is
// digested. Callers may therefore supply plaintext or a pre-computed
// hash interchangeably.
func EnsureHashed(password string) string {
	if IsHashed(password) {
		return password
	}
	return HashPassword(password)
}
