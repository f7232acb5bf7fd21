package boltdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corevoice/users-service/internal/models"
	"github.com/corevoice/users-service/internal/storage"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "users.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUserStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	user := models.NewUser("boltuser", "hash123")
	created, err := s.CreateUser(ctx, user)
	require.NoError(t, err)
	assert.True(t, user.Equal(created))

	byID, err := s.GetUserByID(ctx, user.UserID)
	require.NoError(t, err)
	byName, err := s.GetUserByUsername(ctx, "boltuser")
	require.NoError(t, err)
	assert.True(t, byID.Equal(byName))

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	_, err = s.GetUserByUsername(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestUserStorage_CreateUser_Duplicates(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	user := models.NewUser("boltdup", "hash1")
	_, err := s.CreateUser(ctx, user)
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, models.NewUser("boltdup", "hash2"))
	assert.ErrorIs(t, err, storage.ErrUserExists)

	sameID := models.NewUser("boltother", "hash3")
	sameID.UserID = user.UserID
	_, err = s.CreateUser(ctx, sameID)
	assert.ErrorIs(t, err, storage.ErrUserExists)
}

func TestUserStorage_Update(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	created, err := s.CreateUser(ctx, models.NewUser("boltupd", "hash123"))
	require.NoError(t, err)

	tampered := created.Clone()
	tampered.CreatedTimestamp = 42
	tampered.Username = "boltupd2"

	updated, err := s.UpdateUser(ctx, tampered)
	require.NoError(t, err)
	assert.Equal(t, created.CreatedTimestamp, updated.CreatedTimestamp)
	assert.Equal(t, "boltupd2", updated.Username)

	// Rename dropped the stale username index entry
	_, err = s.GetUserByUsername(ctx, "boltupd")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = s.UpdateUser(ctx, models.NewUser("boltghost", "hash"))
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestUserStorage_Update_UsernameCollision(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	_, err := s.CreateUser(ctx, models.NewUser("bolttaken", "hash1"))
	require.NoError(t, err)
	other, err := s.CreateUser(ctx, models.NewUser("boltfree", "hash2"))
	require.NoError(t, err)

	collision := other.Clone()
	collision.Username = "bolttaken"
	_, err = s.UpdateUser(ctx, collision)
	assert.ErrorIs(t, err, storage.ErrUserExists)
}

func TestUserStorage_Delete(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	created, err := s.CreateUser(ctx, models.NewUser("boltdel", "hash123"))
	require.NoError(t, err)

	removed, err := s.DeleteUser(ctx, created.UserID)
	require.NoError(t, err)
	assert.True(t, created.Equal(removed))

	_, err = s.GetUserByID(ctx, created.UserID)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	_, err = s.GetUserByUsername(ctx, "boltdel")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	_, err = s.DeleteUser(ctx, created.UserID)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestStorage_CloseIdempotent(t *testing.T) {
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "users.bolt"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
