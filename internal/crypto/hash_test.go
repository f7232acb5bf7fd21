package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Well-known SHA-256 digest of the string "password"
const passwordDigest = "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"

func TestHashPassword(t *testing.T) {
	assert.Equal(t, passwordDigest, HashPassword("password"))

	digest := HashPassword("anything else")
	assert.Len(t, digest, 64)
	assert.Equal(t, strings.ToLower(digest), digest)
}

func TestIsHashed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "real digest", input: passwordDigest, want: true},
		{name: "plaintext", input: "hunter2", want: false},
		{name: "empty", input: "", want: false},
		{name: "too short", input: passwordDigest[:63], want: false},
		{name: "too long", input: passwordDigest + "0", want: false},
		{name: "uppercase hex rejected", input: strings.ToUpper(passwordDigest), want: false},
		{name: "non-hex characters", input: strings.Repeat("g", 64), want: false},
		{name: "hex-shaped plaintext treated as digest", input: strings.Repeat("a", 64), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHashed(tt.input))
		})
	}
}

func TestEnsureHashed(t *testing.T) {
	// Plaintext gets digested
	assert.Equal(t, passwordDigest, EnsureHashed("password"))

	// An already-hashed value passes through unchanged
	assert.Equal(t, passwordDigest, EnsureHashed(passwordDigest))

	// Idempotent for any input
	once := EnsureHashed("some plaintext")
	assert.Equal(t, once, EnsureHashed(once))
}
