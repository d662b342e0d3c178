package utils

import (
	"context"
	"time"
)

// SleepContext waits for d or until ctx is done, whichever comes first.
// A non-positive d returns immediately unless ctx is already done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Millis converts d to whole milliseconds, truncating.
func Millis(d time.Duration) int64 {
	return d.Milliseconds()
}

// FromMillis is the inverse of Millis.
func FromMillis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
