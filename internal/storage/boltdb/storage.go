package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketUsers     = []byte("users")     // user_id -> JSON document
	bucketUsernames = []byte("usernames") // username -> user_id
)

// Storage is the embedded document-store backend: one JSON document per
// user in the users bucket, with a usernames index bucket alongside.
// Mutations run inside a single Update transaction, so probe-then-write
// sequences are atomic here unlike in the external document store.
type Storage struct {
	db *bbolt.DB
}

// New creates a new BoltDB storage instance.
// dbPath is the path to the BoltDB database file.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database file. Safe to call more than once.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketUsers); err != nil {
			return fmt.Errorf("failed to create users bucket: %w", err)
		}

		if _, err := tx.CreateBucketIfNotExists(bucketUsernames); err != nil {
			return fmt.Errorf("failed to create usernames bucket: %w", err)
		}

		return nil
	})
}
