package redisdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Key layout: one JSON document per user under user:<user_id>, plus a
// username:<name> index entry pointing at the owning user_id. The index
// is maintained by this backend; the store itself enforces nothing
// about username uniqueness.
const (
	userKeyPrefix     = "user:"
	usernameKeyPrefix = "username:"
)

// Storage is the external document-store backend
type Storage struct {
	client *redis.Client
}

// New creates a Redis-backed storage instance and verifies the
// connection before returning it.
func New(ctx context.Context, addr, password string, db int) (*Storage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	return &Storage{client: client}, nil
}

// Close releases the client connection pool. Safe to call more than once.
func (s *Storage) Close() error {
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

func userKey(userID string) string {
	return userKeyPrefix + userID
}

func usernameKey(username string) string {
	return usernameKeyPrefix + username
}
