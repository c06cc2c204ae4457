package capture

import (
	"context"
	"sync/atomic"
	"time"
)

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Sleeper blocks for d or returns early with the context's error.
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

// FrameClock paces frame notifications at a fixed rate when no external
// screen producer supplies them. The schedule is drift-free (each slot is
// start + n/fps, not last + 1/fps); slots missed because the consumer ran
// long are skipped and counted as dropped frames.
type FrameClock struct {
	fps     float64
	clock   Clock
	sleep   Sleeper
	dropped atomic.Int64
}

// NewFrameClock returns a frame clock ticking at fps (falls back to 30 for
// non-positive values).
func NewFrameClock(fps float64) *FrameClock {
	if fps <= 0 {
		fps = 30
	}
	return &FrameClock{
		fps:   fps,
		clock: time.Now,
		sleep: defaultSleeper,
	}
}

// Run emits one session-relative timestamp per frame slot until ctx is
// cancelled or emit fails. The first slot fires immediately, so frame 0
// carries a timestamp at (or within scheduling noise of) zero.
func (fc *FrameClock) Run(ctx context.Context, emit func(ts float64) error) error {
	interval := time.Duration(float64(time.Second) / fc.fps)
	start := fc.clock()
	next := start

	for {
		if wait := next.Sub(fc.clock()); wait > 0 {
			if err := fc.sleep(ctx, wait); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		now := fc.clock()
		if err := emit(now.Sub(start).Seconds()); err != nil {
			return err
		}

		next = next.Add(interval)
		for !next.After(now) {
			next = next.Add(interval)
			fc.dropped.Add(1)
		}
	}
}

// Dropped returns the number of frame slots skipped so far.
func (fc *FrameClock) Dropped() int64 {
	return fc.dropped.Load()
}
