package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/corevoice/users-service/internal/models"
	"github.com/corevoice/users-service/internal/storage"
)

// CreateUser inserts a new record. Uniqueness is probed before the
// insert; the UNIQUE indexes on user_id/username are the backstop for
// the probe-then-insert race window.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	exists, err := storage.UserExists(ctx, s, user)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, storage.ErrUserExists
	}

	blob, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}

	query := `
		INSERT INTO users (user_id, created_timestamp, username, user_object)
		VALUES (?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		user.UserID,
		user.CreatedTimestamp,
		user.Username,
		string(blob),
	)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, storage.ErrUserExists
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return s.GetUserByID(ctx, user.UserID)
}

// GetUserByID retrieves a record by user_id
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.getUserByColumn(ctx, "user_id", userID)
}

// GetUserByUsername retrieves a record by username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUserByColumn(ctx, "username", username)
}

// getUserByColumn scans for an exact match on an indexed column and
// parses the stored user_object blob. More than one matching row means
// the create-time uniqueness check was bypassed somehow; that is
// surfaced as ErrDuplicateRows rather than silently picking a row.
func (s *Storage) getUserByColumn(ctx context.Context, column, value string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT user_object FROM users WHERE %s = ?`, column)

	rows, err := s.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var blobs []string
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		blobs = append(blobs, blob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user rows: %w", err)
	}

	switch len(blobs) {
	case 0:
		return nil, storage.ErrUserNotFound
	case 1:
		user := &models.User{}
		if err := json.Unmarshal([]byte(blobs[0]), user); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user object: %w", err)
		}
		return user, nil
	default:
		return nil, fmt.Errorf("%w: %s=%q", storage.ErrDuplicateRows, column, value)
	}
}

// UpdateUser replaces the stored record for user.UserID. The stored
// created_timestamp always wins over the input value. A rename that
// collides with a different existing user_id fails with ErrUserExists.
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	existing, err := s.GetUserByID(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	if byName, err := s.GetUserByUsername(ctx, user.Username); err == nil {
		if byName.UserID != user.UserID {
			return nil, storage.ErrUserExists
		}
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, err
	}

	updated := user.Clone()
	updated.CreatedTimestamp = existing.CreatedTimestamp

	blob, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}

	query := `
		UPDATE users
		SET username = ?, user_object = ?
		WHERE user_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		updated.Username,
		string(blob),
		updated.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, storage.ErrUserNotFound
	}

	return s.GetUserByID(ctx, updated.UserID)
}

// DeleteUser removes the record and returns the removed value
func (s *Storage) DeleteUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	return user, nil
}
