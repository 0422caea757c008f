// Package kvstore holds the key-value backends the cockpit snapshot is persisted to.
package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key is absent
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a minimal key-value store. Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Driver names accepted by Open
const (
	DriverMemory = "memory"
	DriverBadger = "badger"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Config selects and configures a backend
type Config struct {
	Driver   string
	Path     string
	RedisURL string
}

// Open returns the backend named by cfg.Driver
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverBadger:
		store, err = OpenBadger(BadgerConfig{Path: cfg.Path, SyncWrites: true})
	case DriverRedis:
		store, err = OpenRedis(ctx, cfg.RedisURL)
	case DriverSQLite:
		store, err = OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
