package usecase

import (
	"context"
	"time"
)

// backoff returns the delay before the retry that follows attempt:
// base doubled per attempt, capped at ceiling.
func backoff(base, ceiling time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt < 1 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	d := base << (attempt - 1)
	if d <= 0 || (ceiling > 0 && d > ceiling) {
		return ceiling
	}
	return d
}

// sleep waits for d or until ctx is done. It reports whether the full
// delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
