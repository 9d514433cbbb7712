package usecase

import (
	"context"
	"sync"

	"github.com/user/urlcleaner/internal/entity"
	"github.com/user/urlcleaner/internal/repository"
)

// SliceIntake serves a fixed list of URLs in order.
type SliceIntake struct {
	mu   sync.Mutex
	urls []string
	next int
}

var _ repository.IntakeRepository = (*SliceIntake)(nil)

func NewSliceIntake(urls []string) *SliceIntake {
	return &SliceIntake{urls: urls}
}

func (s *SliceIntake) Pop(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.urls) {
		return "", repository.ErrIntakeDrained
	}
	u := s.urls[s.next]
	s.next++
	return u, nil
}

// CollectSink keeps every record in memory.
type CollectSink struct {
	mu    sync.Mutex
	stats []*entity.URLStat
}

var _ repository.SinkRepository = (*CollectSink)(nil)

func (s *CollectSink) Save(_ context.Context, stat *entity.URLStat) error {
	s.mu.Lock()
	s.stats = append(s.stats, stat)
	s.mu.Unlock()
	return nil
}

// Stats returns a copy of the collected records.
func (s *CollectSink) Stats() []*entity.URLStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.URLStat, len(s.stats))
	copy(out, s.stats)
	return out
}
