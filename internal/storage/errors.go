package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that no record matched the lookup key
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates a uniqueness violation on username or user_id
	ErrUserExists = errors.New("user already exists")

	// ErrDuplicateRows indicates more than one row matched a key that
	// must be unique. This is an internal-consistency fault, not a
	// normal user-facing condition.
	ErrDuplicateRows = errors.New("duplicate entries for unique key")
)
