// Package service implements the user-account service on top of one
// storage backend: password normalization, redacted views and the
// identity-matching rules guarding destructive operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corevoice/users-service/internal/crypto"
	"github.com/corevoice/users-service/internal/models"
	"github.com/corevoice/users-service/internal/storage"
	"github.com/corevoice/users-service/internal/validation"
)

// Service-level errors
var (
	// ErrAuthentication indicates a credential mismatch on an existing
	// user. Distinct from a lookup miss; do not conflate the two.
	ErrAuthentication = errors.New("authentication failed")

	// ErrUserNotMatched indicates the supplied record does not equal
	// the canonical stored record field for field
	ErrUserNotMatched = errors.New("user does not match stored record")

	// ErrInvalidUser indicates a malformed request payload
	ErrInvalidUser = errors.New("invalid user payload")
)

// Service wraps one storage backend. All password material entering the
// service is normalized to a SHA-256 hex digest before being persisted
// or compared, and all inputs are cloned before mutation.
type Service struct {
	logger *slog.Logger
	store  storage.UserStorage
}

// New creates a user service over the given backend
func New(logger *slog.Logger, store storage.UserStorage) *Service {
	return &Service{
		logger: logger,
		store:  store,
	}
}

// CreateUser validates and inserts a new record. The caller's object is
// never mutated; password normalization happens on a defensive copy.
func (s *Service) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidUser)
	}

	candidate := user.Clone()

	if err := validation.ValidateUsername(candidate.Username); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUser, err)
	}
	if err := validation.ValidatePassword(candidate.PasswordHash); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUser, err)
	}
	if err := candidate.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUser, err)
	}

	candidate.PasswordHash = crypto.EnsureHashed(candidate.PasswordHash)

	created, err := s.store.CreateUser(ctx, candidate)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user created",
		slog.String("username", created.Username),
		slog.String("user_id", created.UserID))

	return created, nil
}

// ReadUnauthenticatedUser resolves spec by id or username and returns a
// redacted copy with credential and token material cleared. This is the
// default, safe read path.
func (s *Service) ReadUnauthenticatedUser(ctx context.Context, spec string) (*models.User, error) {
	user, err := storage.GetUser(ctx, s.store, spec)
	if err != nil {
		return nil, err
	}
	return user.Redacted(), nil
}

// ReadAuthenticatedUser returns the full, unredacted record when the
// supplied password (plaintext or pre-hashed) matches the stored hash.
// A lookup miss stays ErrUserNotFound; a wrong password on an existing
// user is ErrAuthentication.
func (s *Service) ReadAuthenticatedUser(ctx context.Context, username, password string) (*models.User, error) {
	user, err := storage.GetUser(ctx, s.store, username)
	if err != nil {
		return nil, err
	}

	if crypto.EnsureHashed(password) != user.PasswordHash {
		s.logger.WarnContext(ctx, "authentication failed",
			slog.String("username", username))
		return nil, ErrAuthentication
	}

	return user, nil
}

// UpdateUser replaces the stored record for user.UserID. A record
// produced by ReadUnauthenticatedUser is rejected as-is: credentials
// and the token sequence must be restored before it can round-trip
// back in as an update payload.
func (s *Service) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidUser)
	}
	if user.PasswordHash == "" {
		return nil, fmt.Errorf("%w: password_hash is required", ErrInvalidUser)
	}
	if user.Tokens == nil {
		return nil, fmt.Errorf("%w: tokens must be a sequence", ErrInvalidUser)
	}

	candidate := user.Clone()

	if err := candidate.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUser, err)
	}

	candidate.PasswordHash = crypto.EnsureHashed(candidate.PasswordHash)

	updated, err := s.store.UpdateUser(ctx, candidate)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user updated",
		slog.String("username", updated.Username),
		slog.String("user_id", updated.UserID))

	return updated, nil
}

// DeleteUser removes a record only when the supplied object equals the
// canonical stored record field for field. Stale, modified or redacted
// copies fail with ErrUserNotMatched; the id lookup runs first, so a
// nonexistent id stays ErrUserNotFound.
func (s *Service) DeleteUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidUser)
	}

	canonical, err := s.store.GetUserByID(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	if !user.Equal(canonical) {
		return nil, ErrUserNotMatched
	}

	removed, err := s.store.DeleteUser(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user deleted",
		slog.String("username", removed.Username),
		slog.String("user_id", removed.UserID))

	return removed, nil
}

// Close releases the backend
func (s *Service) Close() error {
	return s.store.Close()
}
