package repository

import (
	"context"

	"github.com/user/urlcleaner/internal/entity"
)

// FailedURLRepository tracks URLs whose probes ended in REMOTE_ERROR.
type FailedURLRepository interface {
	// SaveOrUpdate creates or updates a record for a failed URL.
	SaveOrUpdate(ctx context.Context, failedURL *entity.FailedURL) error
	// FindRetryable retrieves a batch of URLs that are due for a retry.
	FindRetryable(ctx context.Context, limit int) ([]*entity.FailedURL, error)
	// Delete removes a failed URL record, typically after a successful clean.
	Delete(ctx context.Context, url string) error
}
