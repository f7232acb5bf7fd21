package storage

import (
	"context"
	"errors"

	"github.com/corevoice/users-service/internal/models"
)

// UserStorage defines the capability interface every backend provides.
// Implementations are safe for concurrent use by independent requests.
type UserStorage interface {
	// CreateUser inserts a new record and returns the stored value.
	// Returns ErrUserExists if a record already matches the input's
	// username or user_id.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByID retrieves the record whose user_id matches.
	// Returns ErrUserNotFound if none exists.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// GetUserByUsername retrieves the record whose username matches.
	// Note that username is not guaranteed to be static.
	// Returns ErrUserNotFound if none exists.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// UpdateUser replaces the stored record for user.UserID, preserving
	// the stored created_timestamp regardless of the input value.
	// Returns ErrUserNotFound if the user_id does not exist and
	// ErrUserExists if the new username belongs to a different user.
	UpdateUser(ctx context.Context, user *models.User) (*models.User, error)

	// DeleteUser removes the record and returns the removed value.
	// Returns ErrUserNotFound if the user_id does not exist.
	DeleteUser(ctx context.Context, userID string) (*models.User, error)

	// Close releases backend resources. Idempotent.
	Close() error
}

// GetUser resolves a caller-supplied spec that may be either a user_id
// or a username. The user_id lookup runs first so an id match wins when
// a username happens to collide with another user's id.
func GetUser(ctx context.Context, s UserStorage, spec string) (*models.User, error) {
	user, err := s.GetUserByID(ctx, spec)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	return s.GetUserByUsername(ctx, spec)
}

// UserExists probes whether a record already matches the candidate's
// username or user_id. Not-found on either probe is a negative signal,
// not a propagated error.
func UserExists(ctx context.Context, s UserStorage, user *models.User) (bool, error) {
	if _, err := s.GetUserByUsername(ctx, user.Username); err == nil {
		return true, nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}

	// The user_id probe catches callers that supplied their own id
	// instead of letting the model generate one.
	if _, err := s.GetUserByID(ctx, user.UserID); err == nil {
		return true, nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}

	return false, nil
}
