// Package games is the sqlite-backed development catalog: a store for game
// records and the REST handler that serves them in the shape the client
// expects.
package games

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"gamedex/internal/metrics"
)

// Record is a game as stored and served: an arbitrary JSON object with at
// least an id and a title.
type Record map[string]any

type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Search   string // case-insensitive title substring
	Category string // case-insensitive exact match
	Slug     string // exact match
	Limit    int    // 0 means no limit
	Offset   int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// GetByID returns nil, nil when no game has the id.
func (r *Repo) GetByID(ctx context.Context, id string) (rec Record, err error) {
	defer observe("get", time.Now(), &err)

	var payload string
	err = r.DB.QueryRowContext(ctx, `SELECT payload FROM games WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	if err = json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	return rec, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (total int, err error) {
	defer observe("count", time.Now(), &err)

	sqlStr, args := buildListSQL(q, true)
	if err = r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) (out []Record, err error) {
	defer observe("list", time.Now(), &err)

	sqlStr, args := buildListSQL(q, false)
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out = make([]Record, 0)
	for rows.Next() {
		var payload string
		if err = rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		var rec Record
		if err = json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode game: %w", err)
		}
		out = append(out, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// buildListSQL builds either COUNT(*) or the payload SELECT.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	sqlStr := `SELECT payload FROM games`
	if countOnly {
		sqlStr = `SELECT COUNT(*) FROM games`
	}

	var where []string
	var args []any

	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		where = append(where, "LOWER(category) = ?")
		args = append(args, strings.ToLower(c))
	}
	if s := strings.TrimSpace(q.Slug); s != "" {
		where = append(where, "slug = ?")
		args = append(args, s)
	}

	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		// numeric ids in numeric order, then the rest
		sqlStr += " ORDER BY CAST(id AS INTEGER), id"
		if q.Limit > 0 {
			offset := q.Offset
			if offset < 0 {
				offset = 0
			}
			sqlStr += " LIMIT ? OFFSET ?"
			args = append(args, q.Limit, offset)
		}
	}
	return sqlStr, args
}

func observe(op string, start time.Time, err *error) {
	metrics.RecordDBQuery(op, time.Since(start), *err)
}
