package redisdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/corevoice/users-service/internal/models"
	"github.com/corevoice/users-service/internal/storage"
)

// CreateUser inserts a new document after probing both keys for an
// existing record. The probe and the insert are separate round trips,
// so two concurrent creators can both pass the probe; the store does
// not enforce username uniqueness on its own.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	exists, err := storage.UserExists(ctx, s, user)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, storage.ErrUserExists
	}

	if err := s.writeUser(ctx, user, ""); err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, user.UserID)
}

// GetUserByID retrieves the document stored under user:<id>
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	blob, err := s.client.Get(ctx, userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user document: %w", err)
	}

	user := &models.User{}
	if err := json.Unmarshal([]byte(blob), user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user document: %w", err)
	}
	return user, nil
}

// GetUserByUsername resolves the username index entry, then loads the
// owning document. A dangling index entry reads as not found.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	userID, err := s.client.Get(ctx, usernameKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve username index: %w", err)
	}

	return s.GetUserByID(ctx, userID)
}

// UpdateUser replaces the document for user.UserID, preserving the
// stored created_timestamp. A rename that collides with a different
// existing user_id fails with ErrUserExists.
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	existing, err := s.GetUserByID(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	ownerID, err := s.client.Get(ctx, usernameKey(user.Username)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to resolve username index: %w", err)
	}
	if err == nil && ownerID != user.UserID {
		return nil, storage.ErrUserExists
	}

	updated := user.Clone()
	updated.CreatedTimestamp = existing.CreatedTimestamp

	staleUsername := ""
	if existing.Username != updated.Username {
		staleUsername = existing.Username
	}

	if err := s.writeUser(ctx, updated, staleUsername); err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, updated.UserID)
}

// DeleteUser removes the document and its username index entry,
// returning the removed value
func (s *Storage) DeleteUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, userKey(userID))
		pipe.Del(ctx, usernameKey(user.Username))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete user document: %w", err)
	}

	return user, nil
}

// writeUser stores the document and its username index entry in one
// pipelined transaction, dropping a stale index entry on rename.
func (s *Storage) writeUser(ctx context.Context, user *models.User, staleUsername string) error {
	blob, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user document: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if staleUsername != "" {
			pipe.Del(ctx, usernameKey(staleUsername))
		}
		pipe.Set(ctx, userKey(user.UserID), blob, 0)
		pipe.Set(ctx, usernameKey(user.Username), user.UserID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write user document: %w", err)
	}

	return nil
}
