package usecase

import (
	"context"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		base, ceiling time.Duration
		attempt       int
		want          time.Duration
	}{
		{100 * time.Millisecond, time.Second, 1, 100 * time.Millisecond},
		{100 * time.Millisecond, time.Second, 2, 200 * time.Millisecond},
		{100 * time.Millisecond, time.Second, 4, 800 * time.Millisecond},
		{100 * time.Millisecond, time.Second, 5, time.Second},
		{100 * time.Millisecond, time.Second, 64, time.Second},
		{0, time.Second, 3, 0},
		{10 * time.Millisecond, 0, 3, 40 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := backoff(tt.base, tt.ceiling, tt.attempt); got != tt.want {
			t.Errorf("backoff(%s, %s, %d) = %s, want %s", tt.base, tt.ceiling, tt.attempt, got, tt.want)
		}
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	start := time.Now()
	if sleep(ctx, time.Minute) {
		t.Fatal("sleep reported a full delay after cancellation")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("sleep did not observe cancellation")
	}
}

func TestSleep_Elapses(t *testing.T) {
	if !sleep(context.Background(), time.Millisecond) {
		t.Fatal("sleep returned early")
	}
}
