// Package database opens the sqlite files behind the catalog server and
// the client state store, and owns their schemas.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"gamedex/internal/logging"
)

const (
	DefaultFile        = "catalog.db"
	DefaultBusyTimeout = 5 * time.Second
)

// Config locates a database file. An empty Path means DefaultFile under
// HomeDir.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// HomeDir is the per-user data directory, ~/.gamedex.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".gamedex")
}

func (c Config) path() string {
	if c.Path == "" {
		return filepath.Join(HomeDir(), DefaultFile)
	}
	return c.Path
}

func (c Config) dsn() string {
	timeout := c.BusyTimeout
	if timeout <= 0 {
		timeout = DefaultBusyTimeout
	}
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", fmt.Sprint(timeout.Milliseconds()))
	return "file:" + c.path() + "?" + q.Encode()
}

// Open creates the file's directory when missing and returns a handle
// limited to one connection, since sqlite allows a single writer.
func Open(cfg Config) (*sql.DB, error) {
	path := cfg.path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return db, nil
}

// MustOpen is Open for binaries that cannot run without their database.
func MustOpen(cfg Config) *sql.DB {
	db, err := Open(cfg)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.path()).Msg("database unavailable")
	}
	return db
}
