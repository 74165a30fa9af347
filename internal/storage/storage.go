// Package storage is the durable keyed string store backing client state,
// the local equivalent of a browser's localStorage.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"gamedex/pkg/database"
)

// ErrNotFound is returned by Get when the key has never been written or was
// removed.
var ErrNotFound = errors.New("storage: key not found")

// Storage holds string values under string keys. All calls are synchronous.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

type Config struct {
	Driver string
	// Path is the sqlite file or the badger directory.
	Path string
}

// DefaultConfig stores state in ~/.gamedex/state.db.
func DefaultConfig() Config {
	return Config{
		Driver: DriverSQLite,
		Path:   filepath.Join(database.HomeDir(), "state.db"),
	}
}

// Open returns the backend selected by cfg.Driver.
func Open(cfg Config) (Storage, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		db, err := database.Open(database.Config{Path: cfg.Path})
		if err != nil {
			return nil, err
		}
		return NewSQLite(db)
	case DriverBadger:
		return OpenBadger(cfg.Path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}
