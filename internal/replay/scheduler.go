package replay

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/replaykit/joyrec/internal/input"
	"github.com/replaykit/joyrec/internal/logger"
)

// State is the lifecycle phase of a playback run.
type State int

const (
	StateIdle State = iota
	StateCountingDown
	StatePlaying
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCountingDown:
		return "counting_down"
	case StatePlaying:
		return "playing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Driver is the translation layer the scheduler drives.
type Driver interface {
	HandleEvent(ev input.Event) error
	Advance(dt float64) error
	Settled() bool
	ReleaseAll() error
}

// Options tunes a playback run.
type Options struct {
	// Speed is the playback rate multiplier; 2.0 plays twice as fast.
	Speed        float64
	CountdownSec int
	TickMs       int
	// Humanize adds a small random delay to every event deadline, never
	// enough to reorder events.
	Humanize bool

	Clock Clock
	Sleep Sleeper
	Rand  *rand.Rand
}

// settleTimeout bounds how long the scheduler keeps ticking after the
// last event so decaying axes can reach center.
const settleTimeout = time.Second

// Scheduler plays a recorded event stream against a driver, honoring the
// original timing. Overdue events are applied immediately in order rather
// than skipped, so a stall compresses playback instead of losing inputs.
type Scheduler struct {
	driver Driver
	opts   Options
	tick   time.Duration

	mu     sync.Mutex
	state  State
	played int
}

// NewScheduler creates a scheduler for driver. Zero option fields get
// defaults: real time clock and sleep, speed 1.0, 10ms tick.
func NewScheduler(driver Driver, opts Options) *Scheduler {
	if opts.Speed <= 0 {
		opts.Speed = 1.0
	}
	if opts.TickMs <= 0 {
		opts.TickMs = 10
	}
	if opts.CountdownSec < 0 {
		opts.CountdownSec = 0
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = defaultSleeper
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Scheduler{
		driver: driver,
		opts:   opts,
		tick:   time.Duration(opts.TickMs) * time.Millisecond,
		state:  StateIdle,
	}
}

// State returns the current playback state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Played returns how many events have been applied so far.
func (s *Scheduler) Played() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.played
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Play runs the full event stream. Events must be in chronological order.
// On cancellation or device failure the driver is released best-effort and
// the reason is returned.
func (s *Scheduler) Play(ctx context.Context, events []input.Event) error {
	// Center the device before the countdown so the game never sees the
	// kernel's initial axis values.
	if err := s.driver.ReleaseAll(); err != nil {
		return s.abort(fmt.Errorf("failed to reset device: %w", err))
	}

	if err := s.countdown(ctx); err != nil {
		return s.abort(err)
	}

	s.setState(StatePlaying)
	logger.Info().
		Int("events", len(events)).
		Float64("speed", s.opts.Speed).
		Msg("Replay started")

	start := s.opts.Clock()
	lastTick := start
	prevDeadline := start

	for _, ev := range events {
		deadline := s.deadlineFor(start, ev.Timestamp)
		if deadline.Before(prevDeadline) {
			deadline = prevDeadline
		}
		prevDeadline = deadline

		if err := s.waitUntil(ctx, deadline, &lastTick); err != nil {
			return s.abort(err)
		}

		if err := s.driver.HandleEvent(ev); err != nil {
			return s.abort(fmt.Errorf("virtual device failed: %w", err))
		}

		s.mu.Lock()
		s.played++
		played := s.played
		s.mu.Unlock()
		if played%100 == 0 {
			logger.Info().
				Int("played", played).
				Int("total", len(events)).
				Msg("Replay progress")
		}
	}

	if err := s.settle(ctx, &lastTick); err != nil {
		return s.abort(err)
	}

	if err := s.driver.ReleaseAll(); err != nil {
		return s.abort(fmt.Errorf("failed to release device: %w", err))
	}

	s.setState(StateCompleted)
	logger.Info().
		Int("played", len(events)).
		Msg("Replay completed")
	return nil
}

// countdown gives the user time to focus the game window.
func (s *Scheduler) countdown(ctx context.Context) error {
	if s.opts.CountdownSec <= 0 {
		return nil
	}

	s.setState(StateCountingDown)
	for i := s.opts.CountdownSec; i > 0; i-- {
		logger.Info().
			Int("seconds", i).
			Msg("Replay starting in")
		if err := s.opts.Sleep(ctx, time.Second); err != nil {
			return err
		}
	}
	return nil
}

// deadlineFor maps a recorded timestamp to wall time, scaled by speed and
// optionally jittered.
func (s *Scheduler) deadlineFor(start time.Time, ts float64) time.Time {
	deadline := start.Add(time.Duration(math.Round(ts / s.opts.Speed * float64(time.Second))))
	if s.opts.Humanize {
		jitter := time.Duration((0.01 + 0.03*s.opts.Rand.Float64()) * float64(time.Second))
		deadline = deadline.Add(jitter)
	}
	return deadline
}

// waitUntil sleeps toward deadline in tick-sized slices, advancing the
// driver's axis engines between slices. An already-passed deadline returns
// immediately so backlogged events flush in order.
func (s *Scheduler) waitUntil(ctx context.Context, deadline time.Time, lastTick *time.Time) error {
	for {
		now := s.opts.Clock()
		if !now.Before(deadline) {
			return nil
		}

		wait := deadline.Sub(now)
		if wait > s.tick {
			wait = s.tick
		}
		if err := s.opts.Sleep(ctx, wait); err != nil {
			return err
		}
		if err := s.advance(lastTick); err != nil {
			return err
		}
	}
}

// settle keeps ticking after the last event until every axis has decayed
// home, bounded by settleTimeout.
func (s *Scheduler) settle(ctx context.Context, lastTick *time.Time) error {
	limit := s.opts.Clock().Add(settleTimeout)
	for !s.driver.Settled() && s.opts.Clock().Before(limit) {
		if err := s.opts.Sleep(ctx, s.tick); err != nil {
			return err
		}
		if err := s.advance(lastTick); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) advance(lastTick *time.Time) error {
	now := s.opts.Clock()
	dt := now.Sub(*lastTick).Seconds()
	*lastTick = now
	if err := s.driver.Advance(dt); err != nil {
		return fmt.Errorf("virtual device failed: %w", err)
	}
	return nil
}

// abort marks the run cancelled and releases the device best-effort.
func (s *Scheduler) abort(reason error) error {
	s.setState(StateCancelled)
	if err := s.driver.ReleaseAll(); err != nil {
		logger.Warn().
			Err(err).
			Msg("Failed to release device after abort")
	}
	logger.Info().
		Err(reason).
		Int("played", s.Played()).
		Msg("Replay stopped")
	return reason
}
