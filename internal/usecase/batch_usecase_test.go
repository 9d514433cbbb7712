package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/user/urlcleaner/internal/entity"
	"github.com/user/urlcleaner/internal/normalizer"
	"github.com/user/urlcleaner/internal/repository"
)

func TestBatchCleaner_Clean(t *testing.T) {
	var probers []*fakeProber
	factory := func() (repository.ProberRepository, error) {
		p := newFakeProber(resolveOK)
		probers = append(probers, p)
		return p, nil
	}
	uc := NewBatchCleaner(factory, testOptions, normalizer.Options{}, 10, nil, zaptest.NewLogger(t))

	stats, summary, err := uc.Clean(context.Background(), "LinkedIn", []string{
		"https://ar.linkedin.com/in/someone/",
		"http://www.linkedin.com/profile/view?id=1",
		"https://noname.noname",
	})
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(stats) != 3 || summary.Emitted != 3 {
		t.Fatalf("got %d records, summary %+v", len(stats), summary)
	}
	got := byURL(stats)
	if s := got["https://ar.linkedin.com/in/someone/"]; s.Status != entity.StatusRemoteOK || s.LocalCleanURL != "https://www.linkedin.com/in/someone" {
		t.Errorf("profile: %s %q", s.Status, s.LocalCleanURL)
	}
	if s := got["http://www.linkedin.com/profile/view?id=1"]; s.Status != entity.StatusUncleaned {
		t.Errorf("profile view: %s", s.Status)
	}
	if len(probers) != 1 || probers[0].closed.Load() != 1 {
		t.Errorf("expected one prober, released once")
	}
}

func TestBatchCleaner_Rejects(t *testing.T) {
	factory := func() (repository.ProberRepository, error) { return newFakeProber(resolveOK), nil }
	uc := NewBatchCleaner(factory, testOptions, normalizer.Options{}, 2, nil, zaptest.NewLogger(t))

	if _, _, err := uc.Clean(context.Background(), "twitter", nil); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("empty batch err = %v", err)
	}
	if _, _, err := uc.Clean(context.Background(), "twitter", []string{"a", "b", "c"}); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("large batch err = %v", err)
	}
	if _, _, err := uc.Clean(context.Background(), "myspace", []string{"a"}); !errors.Is(err, normalizer.ErrUnknownNormalizer) {
		t.Errorf("unknown normalizer err = %v", err)
	}
}

func TestBatchCleaner_ProberFactoryError(t *testing.T) {
	boom := errors.New("no pool")
	factory := func() (repository.ProberRepository, error) { return nil, boom }
	uc := NewBatchCleaner(factory, testOptions, normalizer.Options{}, 0, nil, zaptest.NewLogger(t))

	if _, _, err := uc.Clean(context.Background(), "twitter", []string{"@a"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want factory error", err)
	}
}
