package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/urlcleaner/internal/adapter/mongo"
	"github.com/user/urlcleaner/internal/adapter/postgres"
	redisadapter "github.com/user/urlcleaner/internal/adapter/redis"
	"github.com/user/urlcleaner/internal/adapter/sqlite"
	"github.com/user/urlcleaner/internal/adapter/tsv"
	"github.com/user/urlcleaner/internal/repository"
	"github.com/user/urlcleaner/pkg/config"
)

// backends opens intakes and sinks on demand and shares one client per
// store between them.
type backends struct {
	cfg     *config.Config
	logger  *zap.Logger
	stdin   io.Reader
	stdout  io.Writer
	pool    *pgxpool.Pool
	rdb     *goredis.Client
	counts  *sqlite.URLStatRepoImpl
	closers []func() error
}

func newBackends(cfg *config.Config, logger *zap.Logger) *backends {
	return &backends{cfg: cfg, logger: logger, stdin: os.Stdin, stdout: os.Stdout}
}

func (b *backends) postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if b.pool != nil {
		return b.pool, nil
	}
	pool, err := pgxpool.New(ctx, b.cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	b.logger.Info("PostgreSQL connection pool established")
	b.pool = pool
	b.closers = append(b.closers, func() error { pool.Close(); return nil })
	return pool, nil
}

func (b *backends) redis(ctx context.Context) (*goredis.Client, error) {
	if b.rdb != nil {
		return b.rdb, nil
	}
	rdb, err := redisadapter.Connect(ctx, b.cfg.RedisAddr, b.cfg.RedisPassword, b.cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	b.logger.Info("Redis connection established", zap.String("addr", b.cfg.RedisAddr))
	b.rdb = rdb
	b.closers = append(b.closers, rdb.Close)
	return rdb, nil
}

// intake opens the configured source. For the file intake, path "" or "-"
// reads stdin.
func (b *backends) intake(ctx context.Context, path string) (repository.IntakeRepository, error) {
	switch b.cfg.Intake {
	case "file":
		if path == "" || path == "-" {
			return tsv.NewLineReader(b.stdin), nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		b.closers = append(b.closers, f.Close)
		return tsv.NewLineReader(f), nil
	case "redis":
		rdb, err := b.redis(ctx)
		if err != nil {
			return nil, err
		}
		return redisadapter.NewQueueRepo(rdb, b.cfg.RedisIntakeKey), nil
	case "postgres":
		pool, err := b.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewFailedURLIntake(postgres.NewFailedURLRepo(pool), b.cfg.PostgresRetryLimit), nil
	default:
		return nil, fmt.Errorf("unknown intake %q", b.cfg.Intake)
	}
}

// sink opens the configured destination. For the tsv sink, path "" or "-"
// writes stdout.
func (b *backends) sink(ctx context.Context, path, runID string) (repository.SinkRepository, error) {
	switch b.cfg.Sink {
	case "tsv":
		var w io.Writer = b.stdout
		if path != "" && path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return nil, fmt.Errorf("create output: %w", err)
			}
			b.closers = append(b.closers, f.Close)
			w = f
		}
		return tsv.NewWriter(w)
	case "redis":
		rdb, err := b.redis(ctx)
		if err != nil {
			return nil, err
		}
		return redisadapter.NewResultRepo(rdb, b.cfg.RedisResultKey), nil
	case "postgres":
		pool, err := b.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewURLStatRepo(pool, postgres.NewFailedURLRepo(pool), runID), nil
	case "sqlite":
		db, err := sqlite.Open(ctx, b.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		b.counts = sqlite.NewURLStatRepo(db, runID)
		return b.counts, nil
	case "mongo":
		repo, err := mongo.Connect(ctx, mongo.Config{
			URI:        b.cfg.MongoURI,
			Database:   b.cfg.MongoDatabase,
			Collection: b.cfg.MongoCollection,
		}, runID)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return repo.Close(ctx)
		})
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown sink %q", b.cfg.Sink)
	}
}

// reportCounts logs what the sqlite sink holds for this run, if it was used.
func (b *backends) reportCounts(ctx context.Context) {
	if b.counts == nil {
		return
	}
	counts, err := b.counts.CountByStatus(ctx)
	if err != nil {
		b.logger.Warn("Failed to count stored results", zap.Error(err))
		return
	}
	fields := make([]zap.Field, 0, len(counts))
	for status, n := range counts {
		fields = append(fields, zap.Int64(string(status), n))
	}
	b.logger.Info("Stored results", fields...)
}

// Close releases everything in reverse order of opening.
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			b.logger.Warn("Failed to close backend", zap.Error(err))
		}
	}
	b.closers = nil
}
