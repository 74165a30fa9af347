package games

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"gamedex/internal/normalize"
)

// Seed upserts records into the games table. Every record needs an id and
// a title. The payload is stored verbatim so the server returns exactly
// what was seeded.
func (r *Repo) Seed(ctx context.Context, records []Record) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO games (id, title, category, slug, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  title = excluded.title,
		  category = excluded.category,
		  slug = excluded.slug,
		  payload = excluded.payload
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		id := strings.TrimSpace(normalize.Text(rec["id"]))
		title := normalize.Text(rec["title"])
		if id == "" || strings.TrimSpace(title) == "" {
			return 0, fmt.Errorf("record %d: id and title are required", i)
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("marshal game %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx,
			id,
			title,
			normalize.Text(rec["category"]),
			normalize.Text(rec["slug"]),
			string(payload),
		); err != nil {
			return 0, fmt.Errorf("exec upsert for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return len(records), nil
}

// LoadFile reads seed records from a JSON file holding either an array of
// games or an object with a "games" array.
func LoadFile(path string) ([]Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var list []Record
	if err := json.Unmarshal(b, &list); err == nil {
		return list, nil
	}
	var env struct {
		Games []Record `json:"games"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if env.Games == nil {
		return nil, fmt.Errorf("decode seed file: no games array in %s", path)
	}
	return env.Games, nil
}
