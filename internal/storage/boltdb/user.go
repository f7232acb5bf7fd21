package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/corevoice/users-service/internal/models"
	"github.com/corevoice/users-service/internal/storage"
)

// CreateUser inserts a new document. Both uniqueness probes and the
// write happen inside one Update transaction.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	var created *models.User

	err := s.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		usernames := tx.Bucket(bucketUsernames)

		if usernames.Get([]byte(user.Username)) != nil {
			return storage.ErrUserExists
		}
		if users.Get([]byte(user.UserID)) != nil {
			return storage.ErrUserExists
		}

		if err := putUser(tx, user); err != nil {
			return err
		}

		created = user.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// GetUserByID retrieves the document keyed by user_id
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user *models.User

	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		user, err = getUserByID(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByUsername resolves the usernames index, then loads the document
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user *models.User

	err := s.db.View(func(tx *bbolt.Tx) error {
		userID := tx.Bucket(bucketUsernames).Get([]byte(username))
		if userID == nil {
			return storage.ErrUserNotFound
		}

		var err error
		user, err = getUserByID(tx, string(userID))
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUser replaces the document for user.UserID, preserving the
// stored created_timestamp. A rename that collides with a different
// existing user_id fails with ErrUserExists.
func (s *Storage) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	var updated *models.User

	err := s.db.Update(func(tx *bbolt.Tx) error {
		existing, err := getUserByID(tx, user.UserID)
		if err != nil {
			return err
		}

		usernames := tx.Bucket(bucketUsernames)
		if ownerID := usernames.Get([]byte(user.Username)); ownerID != nil && string(ownerID) != user.UserID {
			return storage.ErrUserExists
		}

		updated = user.Clone()
		updated.CreatedTimestamp = existing.CreatedTimestamp

		if existing.Username != updated.Username {
			if err := usernames.Delete([]byte(existing.Username)); err != nil {
				return fmt.Errorf("failed to drop stale username entry: %w", err)
			}
		}

		return putUser(tx, updated)
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteUser removes the document and its username index entry,
// returning the removed value
func (s *Storage) DeleteUser(ctx context.Context, userID string) (*models.User, error) {
	var removed *models.User

	err := s.db.Update(func(tx *bbolt.Tx) error {
		user, err := getUserByID(tx, userID)
		if err != nil {
			return err
		}

		if err := tx.Bucket(bucketUsers).Delete([]byte(userID)); err != nil {
			return fmt.Errorf("failed to delete user document: %w", err)
		}
		if err := tx.Bucket(bucketUsernames).Delete([]byte(user.Username)); err != nil {
			return fmt.Errorf("failed to delete username entry: %w", err)
		}

		removed = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	return removed, nil
}

// getUserByID loads and decodes a document inside an open transaction
func getUserByID(tx *bbolt.Tx, userID string) (*models.User, error) {
	data := tx.Bucket(bucketUsers).Get([]byte(userID))
	if data == nil {
		return nil, storage.ErrUserNotFound
	}

	user := &models.User{}
	if err := json.Unmarshal(data, user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user document: %w", err)
	}
	return user, nil
}

// putUser stores the document and its username index entry inside an
// open Update transaction
func putUser(tx *bbolt.Tx, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user document: %w", err)
	}

	if err := tx.Bucket(bucketUsers).Put([]byte(user.UserID), data); err != nil {
		return fmt.Errorf("failed to save user document: %w", err)
	}
	if err := tx.Bucket(bucketUsernames).Put([]byte(user.Username), []byte(user.UserID)); err != nil {
		return fmt.Errorf("failed to save username entry: %w", err)
	}

	return nil
}
