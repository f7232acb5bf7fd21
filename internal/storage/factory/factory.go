// Package factory maps the configured backend selector tag onto a
// concrete storage constructor. The rest of the service depends only on
// the storage.UserStorage interface.
package factory

import (
	"context"
	"errors"
	"fmt"

	"github.com/corevoice/users-service/internal/config"
	"github.com/corevoice/users-service/internal/storage"
	"github.com/corevoice/users-service/internal/storage/boltdb"
	"github.com/corevoice/users-service/internal/storage/redisdb"
	"github.com/corevoice/users-service/internal/storage/sqlite"
)

// ErrUnknownModule indicates an unrecognized backend selector. This is
// a configuration error surfaced at startup, never at call time.
var ErrUnknownModule = errors.New("unknown storage module")

// constructors is the registry of supported backend tags
var constructors = map[string]func(ctx context.Context, cfg config.DatabaseConfig) (storage.UserStorage, error){
	"sqlite": func(ctx context.Context, cfg config.DatabaseConfig) (storage.UserStorage, error) {
		return sqlite.New(ctx, cfg.SQLitePath)
	},
	"redis": func(ctx context.Context, cfg config.DatabaseConfig) (storage.UserStorage, error) {
		return redisdb.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	},
	"bolt": func(ctx context.Context, cfg config.DatabaseConfig) (storage.UserStorage, error) {
		return boltdb.New(ctx, cfg.BoltPath)
	},
}

// Modules returns the supported backend selector tags
func Modules() []string {
	tags := make([]string, 0, len(constructors))
	for tag := range constructors {
		tags = append(tags, tag)
	}
	return tags
}

// Open constructs the backend selected by cfg.Module
func Open(ctx context.Context, cfg config.DatabaseConfig) (storage.UserStorage, error) {
	construct, ok := constructors[cfg.Module]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, cfg.Module)
	}
	return construct(ctx, cfg)
}
