package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/urlcleaner/internal/entity"
	"github.com/user/urlcleaner/internal/repository"
)

// Schema creates the tables used by this package.
const Schema = `
CREATE TABLE IF NOT EXISTS url_stats (
	id               BIGSERIAL   PRIMARY KEY,
	run_id           TEXT        NOT NULL,
	url              TEXT        NOT NULL,
	status           TEXT        NOT NULL,
	local_clean_url  TEXT,
	remote_clean_url TEXT,
	http_code        INTEGER,
	exception        TEXT,
	attempts         INTEGER     NOT NULL DEFAULT 0,
	cleaned_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS url_stats_run_id_idx ON url_stats (run_id, url);

CREATE TABLE IF NOT EXISTS failed_urls (
	id                     BIGSERIAL   PRIMARY KEY,
	url                    TEXT        NOT NULL UNIQUE,
	failure_reason         TEXT        NOT NULL,
	http_status_code       INTEGER     NOT NULL DEFAULT 0,
	last_attempt_timestamp TIMESTAMPTZ NOT NULL,
	retry_count            INTEGER     NOT NULL DEFAULT 0,
	next_retry_at          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS failed_urls_next_retry_at_idx ON failed_urls (next_retry_at);
`

// failedRetryDelay is the wait before a failed URL is offered again.
const failedRetryDelay = 5 * time.Minute

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// URLStatRepoImpl is a sink that appends one url_stats row per record and
// keeps failed_urls in step with the outcome.
type URLStatRepoImpl struct {
	db     *pgxpool.Pool
	failed repository.FailedURLRepository
	runID  string
	now    func() time.Time
}

var _ repository.SinkRepository = (*URLStatRepoImpl)(nil)

func NewURLStatRepo(db *pgxpool.Pool, failed repository.FailedURLRepository, runID string) *URLStatRepoImpl {
	return &URLStatRepoImpl{db: db, failed: failed, runID: runID, now: time.Now}
}

func (r *URLStatRepoImpl) Save(ctx context.Context, stat *entity.URLStat) error {
	query := `
		INSERT INTO url_stats (run_id, url, status, local_clean_url, remote_clean_url, http_code, exception, attempts, cleaned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	now := r.now()
	_, err := r.db.Exec(ctx, query,
		r.runID,
		stat.URL,
		string(stat.Status),
		nullString(stat.LocalCleanURL),
		nullString(stat.RemoteCleanURL),
		nullInt(stat.HTTPCode),
		nullString(stat.Exception()),
		stat.Attempts,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save url stat for %s: %w", stat.URL, err)
	}

	if fu := failedURLFor(stat, now); fu != nil {
		if err := r.failed.SaveOrUpdate(ctx, fu); err != nil {
			return fmt.Errorf("failed to record failed url %s: %w", stat.URL, err)
		}
	} else if stat.Status == entity.StatusRemoteOK {
		if err := r.failed.Delete(ctx, stat.URL); err != nil {
			return fmt.Errorf("failed to clear failed url %s: %w", stat.URL, err)
		}
	}
	return nil
}

// failedURLFor returns the failed_urls row for a REMOTE_ERROR record.
func failedURLFor(stat *entity.URLStat, now time.Time) *entity.FailedURL {
	if stat.Status != entity.StatusRemoteError {
		return nil
	}
	return &entity.FailedURL{
		URL:                  stat.URL,
		FailureReason:        stat.Exception(),
		HTTPStatusCode:       stat.HTTPCode,
		LastAttemptTimestamp: now,
		NextRetryAt:          now.Add(failedRetryDelay),
	}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
