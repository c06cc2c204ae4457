package replay

import (
	"context"
	"time"
)

// Clock returns the current time. Injectable so playback timing can be
// tested against a virtual clock.
type Clock func() time.Time

// Sleeper blocks for d or until ctx is cancelled, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

func defaultSleeper(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
