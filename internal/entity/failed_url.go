package entity

import "time"

// FailedURL mirrors the `failed_urls` PostgreSQL table schema.
// A row exists for every URL whose probe ended in REMOTE_ERROR and that has
// not resolved since.
type FailedURL struct {
	ID                   int64
	URL                  string
	FailureReason        string
	HTTPStatusCode       int
	LastAttemptTimestamp time.Time
	RetryCount           int
	NextRetryAt          time.Time
}
