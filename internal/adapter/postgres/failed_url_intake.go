package postgres

import (
	"context"
	"sync"

	"github.com/user/urlcleaner/internal/entity"
	"github.com/user/urlcleaner/internal/repository"
)

// FailedURLIntake feeds the failures that are due for another attempt.
// The batch is read once, on the first Pop, so a URL that fails again
// during the run is not served twice.
type FailedURLIntake struct {
	repo  repository.FailedURLRepository
	limit int

	mu      sync.Mutex
	loaded  bool
	pending []*entity.FailedURL
}

var _ repository.IntakeRepository = (*FailedURLIntake)(nil)

func NewFailedURLIntake(repo repository.FailedURLRepository, limit int) *FailedURLIntake {
	return &FailedURLIntake{repo: repo, limit: limit}
}

func (i *FailedURLIntake) Pop(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.loaded {
		batch, err := i.repo.FindRetryable(ctx, i.limit)
		if err != nil {
			return "", err
		}
		i.pending = batch
		i.loaded = true
	}
	if len(i.pending) == 0 {
		return "", repository.ErrIntakeDrained
	}
	next := i.pending[0]
	i.pending = i.pending[1:]
	return next.URL, nil
}
