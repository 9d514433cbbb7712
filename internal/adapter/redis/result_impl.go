package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/urlcleaner/internal/entity"
	"github.com/user/urlcleaner/internal/repository"
)

// ResultRepoImpl is a sink that LPUSHes every record as JSON.
type ResultRepoImpl struct {
	client *redis.Client
	key    string
}

var _ repository.SinkRepository = (*ResultRepoImpl)(nil)

func NewResultRepo(client *redis.Client, key string) *ResultRepoImpl {
	return &ResultRepoImpl{client: client, key: key}
}

func (r *ResultRepoImpl) Save(ctx context.Context, stat *entity.URLStat) error {
	payload, err := json.Marshal(stat)
	if err != nil {
		return fmt.Errorf("failed to encode result for %s: %w", stat.URL, err)
	}
	return r.client.LPush(ctx, r.key, payload).Err()
}

// Connect builds a client and checks it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}
