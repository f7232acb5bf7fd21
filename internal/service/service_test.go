package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corevoice/users-service/internal/crypto"
	"github.com/corevoice/users-service/internal/models"
	"github.com/corevoice/users-service/internal/storage"
	"github.com/corevoice/users-service/internal/storage/sqlite"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()
	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)

	svc := New(slog.New(slog.NewTextHandler(io.Discard, nil)), store)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestService_CreateUser(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	input := models.NewUser("alice", "pw1")
	created, err := svc.CreateUser(ctx, input)
	require.NoError(t, err)

	assert.NotEmpty(t, created.UserID)
	assert.InDelta(t, time.Now().Unix(), created.CreatedTimestamp, 5)

	// Plaintext was normalized to a SHA-256 hex digest at rest
	assert.Equal(t, crypto.HashPassword("pw1"), created.PasswordHash)

	// The caller's object was not mutated
	assert.Equal(t, "pw1", input.PasswordHash)
}

func TestService_CreateUser_AcceptsPrehashed(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	hash := crypto.HashPassword("pw1")
	created, err := svc.CreateUser(ctx, models.NewUser("hasheduser", hash))
	require.NoError(t, err)
	assert.Equal(t, hash, created.PasswordHash)
}

func TestService_CreateUser_Duplicates(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	first, err := svc.CreateUser(ctx, models.NewUser("taken", "pw1"))
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, models.NewUser("taken", "pw2"))
	assert.ErrorIs(t, err, storage.ErrUserExists)

	sameID := models.NewUser("untaken", "pw3")
	sameID.UserID = first.UserID
	_, err = svc.CreateUser(ctx, sameID)
	assert.ErrorIs(t, err, storage.ErrUserExists)
}

func TestService_CreateUser_Validation(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	tests := []struct {
		user *models.User
		name string
	}{
		{name: "nil user", user: nil},
		{name: "empty username", user: models.NewUser("", "pw")},
		{name: "bad username", user: models.NewUser("has spaces", "pw")},
		{name: "empty password", user: models.NewUser("nopassword", "")},
		{
			name: "bad units",
			user: func() *models.User {
				u := models.NewUser("badunits", "pw")
				u.Units.Time = 13
				return u
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tt.user)
			assert.ErrorIs(t, err, ErrInvalidUser)
		})
	}
}

func TestService_ReadUnauthenticatedUser(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	input := models.NewUser("reader", "pw1")
	input.Tokens = []models.TokenConfig{{Description: "cli", RefreshToken: "secret"}}
	created, err := svc.CreateUser(ctx, input)
	require.NoError(t, err)

	// Same redacted record whether spec matches by id or by username
	for _, spec := range []string{created.UserID, "reader"} {
		got, err := svc.ReadUnauthenticatedUser(ctx, spec)
		require.NoError(t, err)
		assert.Empty(t, got.PasswordHash)
		assert.Empty(t, got.Tokens)
		assert.Equal(t, created.UserID, got.UserID)
		assert.Equal(t, "reader", got.Username)
	}

	_, err = svc.ReadUnauthenticatedUser(ctx, "unknown-spec")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestService_ReadAuthenticatedUser(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	created, err := svc.CreateUser(ctx, models.NewUser("authuser", "pw1"))
	require.NoError(t, err)

	// Plaintext and its pre-computed digest both authenticate and
	// return an identical unredacted record
	byPlain, err := svc.ReadAuthenticatedUser(ctx, "authuser", "pw1")
	require.NoError(t, err)
	byHash, err := svc.ReadAuthenticatedUser(ctx, "authuser", crypto.HashPassword("pw1"))
	require.NoError(t, err)
	assert.True(t, byPlain.Equal(byHash))
	assert.True(t, created.Equal(byPlain))
	assert.NotEmpty(t, byPlain.PasswordHash)

	// Wrong password on an existing user is an authentication error,
	// not a lookup miss
	_, err = svc.ReadAuthenticatedUser(ctx, "authuser", "wrong")
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = svc.ReadAuthenticatedUser(ctx, "nobody", "pw1")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestService_UpdateUser_PreservesCreatedTimestamp(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	created, err := svc.CreateUser(ctx, models.NewUser("stamped", "pw1"))
	require.NoError(t, err)

	tampered := created.Clone()
	tampered.CreatedTimestamp = 42

	updated, err := svc.UpdateUser(ctx, tampered)
	require.NoError(t, err)
	assert.Equal(t, created.CreatedTimestamp, updated.CreatedTimestamp)
}

func TestService_UpdateUser_Rename(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	created, err := svc.CreateUser(ctx, models.NewUser("before", "pw1"))
	require.NoError(t, err)

	renamed := created.Clone()
	renamed.Username = "after"
	updated, err := svc.UpdateUser(ctx, renamed)
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Username)

	_, err = svc.ReadUnauthenticatedUser(ctx, "before")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	byNew, err := svc.ReadUnauthenticatedUser(ctx, "after")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, byNew.UserID)

	// user_id lookup unaffected by rename
	byID, err := svc.ReadUnauthenticatedUser(ctx, created.UserID)
	require.NoError(t, err)
	assert.Equal(t, "after", byID.Username)
}

func TestService_UpdateUser_RejectsRedactedPayloads(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	created, err := svc.CreateUser(ctx, models.NewUser("redacted", "pw1"))
	require.NoError(t, err)

	// A record from the unauthenticated read path must not round-trip
	// back in as an update payload
	view, err := svc.ReadUnauthenticatedUser(ctx, created.UserID)
	require.NoError(t, err)
	_, err = svc.UpdateUser(ctx, view)
	assert.ErrorIs(t, err, ErrInvalidUser)

	missingPassword := created.Clone()
	missingPassword.PasswordHash = ""
	_, err = svc.UpdateUser(ctx, missingPassword)
	assert.ErrorIs(t, err, ErrInvalidUser)

	nilTokens := created.Clone()
	nilTokens.Tokens = nil
	_, err = svc.UpdateUser(ctx, nilTokens)
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestService_UpdateUser_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	_, err := svc.UpdateUser(ctx, models.NewUser("ghost", "pw"))
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestService_DeleteUser(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	created, err := svc.CreateUser(ctx, models.NewUser("deletable", "pw1"))
	require.NoError(t, err)

	// A redacted copy must not authorize deletion
	view, err := svc.ReadUnauthenticatedUser(ctx, created.UserID)
	require.NoError(t, err)
	_, err = svc.DeleteUser(ctx, view)
	assert.ErrorIs(t, err, ErrUserNotMatched)

	// Neither must a stale or modified copy
	stale := created.Clone()
	stale.Profile.Email = "changed@example.com"
	_, err = svc.DeleteUser(ctx, stale)
	assert.ErrorIs(t, err, ErrUserNotMatched)

	// A nonexistent id fails with not-found before the equality check
	ghost := models.NewUser("ghost", "pw")
	_, err = svc.DeleteUser(ctx, ghost)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	// The full current record succeeds
	removed, err := svc.DeleteUser(ctx, created)
	require.NoError(t, err)
	assert.True(t, created.Equal(removed))

	_, err = svc.ReadUnauthenticatedUser(ctx, created.UserID)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	// create alice/pw1
	created, err := svc.CreateUser(ctx, models.NewUser("alice", "pw1"))
	require.NoError(t, err)

	// authenticate succeeds
	_, err = svc.ReadAuthenticatedUser(ctx, "alice", "pw1")
	require.NoError(t, err)

	// rename to alice2
	renamed := created.Clone()
	renamed.Username = "alice2"
	updated, err := svc.UpdateUser(ctx, renamed)
	require.NoError(t, err)

	// old username no longer authenticates, new one does
	_, err = svc.ReadAuthenticatedUser(ctx, "alice", "pw1")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	current, err := svc.ReadAuthenticatedUser(ctx, "alice2", "pw1")
	require.NoError(t, err)
	assert.True(t, updated.Equal(current))

	// delete with the full current record
	_, err = svc.DeleteUser(ctx, current)
	require.NoError(t, err)

	// both usernames now miss
	_, err = svc.ReadUnauthenticatedUser(ctx, "alice")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
	_, err = svc.ReadUnauthenticatedUser(ctx, "alice2")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}
