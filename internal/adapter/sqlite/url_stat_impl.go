// Package sqlite stores cleaning results in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/user/urlcleaner/internal/entity"
	"github.com/user/urlcleaner/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS url_stats (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id           TEXT    NOT NULL,
	url              TEXT    NOT NULL,
	status           TEXT    NOT NULL,
	local_clean_url  TEXT,
	remote_clean_url TEXT,
	http_code        INTEGER,
	exception        TEXT,
	attempts         INTEGER NOT NULL DEFAULT 0,
	cleaned_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS url_stats_run_status_idx ON url_stats (run_id, status);
`

// Open opens (or creates) the database at path and applies the schema.
// Writes are serialized on a single connection.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialise sqlite %s: %w", path, err)
		}
	}
	return db, nil
}

// URLStatRepoImpl is a sink that appends one url_stats row per record, so
// duplicate input lines each keep their own row.
type URLStatRepoImpl struct {
	db    *sql.DB
	runID string
}

var _ repository.SinkRepository = (*URLStatRepoImpl)(nil)

func NewURLStatRepo(db *sql.DB, runID string) *URLStatRepoImpl {
	return &URLStatRepoImpl{db: db, runID: runID}
}

func (r *URLStatRepoImpl) Save(ctx context.Context, stat *entity.URLStat) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO url_stats (run_id, url, status, local_clean_url, remote_clean_url, http_code, exception, attempts, cleaned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID,
		stat.URL,
		string(stat.Status),
		sql.NullString{String: stat.LocalCleanURL, Valid: stat.LocalCleanURL != ""},
		sql.NullString{String: stat.RemoteCleanURL, Valid: stat.RemoteCleanURL != ""},
		sql.NullInt64{Int64: int64(stat.HTTPCode), Valid: stat.HTTPCode != 0},
		sql.NullString{String: stat.Exception(), Valid: stat.Err != nil},
		stat.Attempts,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save url stat for %s: %w", stat.URL, err)
	}
	return nil
}

// CountByStatus returns how many records of a run ended in each status.
func (r *URLStatRepoImpl) CountByStatus(ctx context.Context) (map[entity.Status]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM url_stats WHERE run_id = ? GROUP BY status`, r.runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[entity.Status]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[entity.Status(status)] = n
	}
	return counts, rows.Err()
}
