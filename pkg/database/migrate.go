package database

import (
	"database/sql"
	"fmt"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const gamesSchema = `
CREATE TABLE IF NOT EXISTS games (
	id       TEXT PRIMARY KEY,
	title    TEXT NOT NULL,
	category TEXT,
	slug     TEXT,
	payload  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_games_slug ON games(slug);
CREATE INDEX IF NOT EXISTS idx_games_category ON games(category);`

// MigrateState creates the key/value table used for client-side state.
func MigrateState(db *sql.DB) error {
	if _, err := db.Exec(kvSchema); err != nil {
		return fmt.Errorf("apply kv schema: %w", err)
	}
	return nil
}

// MigrateCatalog creates the games table served by the dev catalog server.
func MigrateCatalog(db *sql.DB) error {
	if _, err := db.Exec(gamesSchema); err != nil {
		return fmt.Errorf("apply games schema: %w", err)
	}
	return nil
}
