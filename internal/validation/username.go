package validation

import (
	"fmt"
	"regexp"
)

// UsernamePattern defines the accepted username format:
// letters, digits, underscore, hyphen and dot, 2-64 characters
var UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{2,64}$`)

const (
	// MinUsernameLen is the minimum username length
	MinUsernameLen = 2
	// MaxUsernameLen is the maximum username length
	MaxUsernameLen = 64
)

// ValidateUsername checks that a username matches the accepted format.
// Usernames double as lookup keys, so the character set stays narrow.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	if len(username) < MinUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	}

	if len(username) > MaxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, hyphens and dots")
	}

	return nil
}

// ValidatePassword checks minimal requirements for password material
// supplied on create. Pre-hashed values always satisfy the check.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	return nil
}
