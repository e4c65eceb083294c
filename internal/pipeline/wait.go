package pipeline

import (
	"context"
	"time"
)

// sleep waits for d or until ctx is done, whichever comes first. It reports
// whether the full duration elapsed.
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

// repeat calls fn immediately and then every interval until ctx is done.
func repeat(ctx context.Context, interval time.Duration, fn func()) {
	for {
		if ctx.Err() != nil {
			return
		}
		fn()
		if !sleep(ctx, interval) {
			return
		}
	}
}
