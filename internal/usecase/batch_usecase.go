package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/urlcleaner/internal/entity"
	"github.com/user/urlcleaner/internal/normalizer"
	"github.com/user/urlcleaner/internal/repository"
	"github.com/user/urlcleaner/pkg/metrics"
)

var (
	ErrEmptyBatch    = errors.New("batch contains no urls")
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
)

// ProberFactory builds a fresh prober for one run, since a run releases
// its prober on exit.
type ProberFactory func() (repository.ProberRepository, error)

// BatchCleaner cleans small in-memory batches, one engine run per call.
type BatchCleaner interface {
	Clean(ctx context.Context, normalizerName string, urls []string) ([]*entity.URLStat, *entity.Summary, error)
}

type batchCleaner struct {
	newProber ProberFactory
	opts      Options
	normOpts  normalizer.Options
	maxBatch  int
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewBatchCleaner creates a BatchCleaner.
func NewBatchCleaner(
	newProber ProberFactory,
	opts Options,
	normOpts normalizer.Options,
	maxBatch int,
	m *metrics.Metrics,
	logger *zap.Logger,
) BatchCleaner {
	return &batchCleaner{
		newProber: newProber,
		opts:      opts,
		normOpts:  normOpts,
		maxBatch:  maxBatch,
		metrics:   m,
		logger:    logger,
	}
}

func (uc *batchCleaner) Clean(ctx context.Context, normalizerName string, urls []string) ([]*entity.URLStat, *entity.Summary, error) {
	if len(urls) == 0 {
		return nil, nil, ErrEmptyBatch
	}
	if uc.maxBatch > 0 && len(urls) > uc.maxBatch {
		return nil, nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(urls), uc.maxBatch)
	}
	normalize, err := normalizer.Lookup(normalizerName, uc.normOpts)
	if err != nil {
		return nil, nil, err
	}
	prober, err := uc.newProber()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prober: %w", err)
	}

	sink := &CollectSink{}
	cleaner, err := NewCleaner(uc.opts, normalize, prober, sink, uc.metrics, uc.logger)
	if err != nil {
		_ = prober.Close()
		return nil, nil, err
	}
	summary, err := cleaner.Run(ctx, NewSliceIntake(urls))
	return sink.Stats(), summary, err
}
