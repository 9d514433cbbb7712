package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/user/urlcleaner/internal/repository"
)

// QueueRepoImpl is an intake over a Redis list used as a FIFO queue:
// producers LPUSH, the cleaner RPOPs until the list is empty.
type QueueRepoImpl struct {
	client *redis.Client
	key    string
}

var _ repository.IntakeRepository = (*QueueRepoImpl)(nil)

func NewQueueRepo(client *redis.Client, key string) *QueueRepoImpl {
	return &QueueRepoImpl{client: client, key: key}
}

// Push adds URLs to the left side of the list.
func (r *QueueRepoImpl) Push(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}
	vals := make([]any, len(urls))
	for i, u := range urls {
		vals[i] = u
	}
	return r.client.LPush(ctx, r.key, vals...).Err()
}

// Pop removes a URL from the right side of the list. An empty list means
// the intake is drained.
func (r *QueueRepoImpl) Pop(ctx context.Context) (string, error) {
	u, err := r.client.RPop(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrIntakeDrained
	}
	return u, err
}

// Size returns the current number of items in the queue.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.key).Result()
}
