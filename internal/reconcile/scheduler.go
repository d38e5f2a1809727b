package reconcile

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vidsync/internal/log"
	"github.com/ManuGH/vidsync/internal/metrics"
)

// Runner is what the scheduler triggers. *Sweep implements it.
type Runner interface {
	Run(ctx context.Context, contextID string) (Report, error)
}

// Scheduler triggers all-context sweeps periodically.
type Scheduler struct {
	runner Runner
	locker Locker
	logger zerolog.Logger

	// Config
	BaseInterval time.Duration
	MaxInterval  time.Duration
	Jitter       time.Duration
	StartupDelay time.Duration

	clock Clock

	mu              sync.Mutex
	currentInterval time.Duration
}

// Clock interface for mocking time
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer interface for mocking time.Timer
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}

// RealClock implements Clock using standard time package
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
func (RealClock) NewTimer(d time.Duration) Timer {
	return &RealTimer{t: time.NewTimer(d)}
}

// RealTimer wraps time.Timer
type RealTimer struct {
	t *time.Timer
}

func (r *RealTimer) C() <-chan time.Time        { return r.t.C }
func (r *RealTimer) Stop() bool                 { return r.t.Stop() }
func (r *RealTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }

// NewScheduler creates a scheduler. locker may be nil for single-instance
// deployments.
func NewScheduler(runner Runner, locker Locker) *Scheduler {
	return &Scheduler{
		runner:       runner,
		locker:       locker,
		logger:       log.WithComponent("reconcile.scheduler"),
		BaseInterval: 5 * time.Minute,
		MaxInterval:  30 * time.Minute,
		Jitter:       30 * time.Second,
		StartupDelay: 30 * time.Second,
		clock:        RealClock{},
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.BaseInterval).Msg("sweep scheduler started")

	timer := s.clock.NewTimer(s.nextDuration(true))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweep scheduler stopping")
			return
		case <-timer.C():
			s.tick(ctx)
			timer.Reset(s.nextDuration(false))
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("sweep lock unavailable, backing off")
			s.increaseBackoff()
			return
		}
		if !ok {
			s.logger.Debug().Msg("sweep lock held elsewhere")
			metrics.IncSweepRun("locked")
			return
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn().Err(err).Msg("sweep lock release failed")
			}
		}()
	}

	report, err := s.runner.Run(ctx, "")
	switch {
	case err != nil:
		s.logger.Error().Err(err).Msg("sweep failed, backing off")
		s.increaseBackoff()
	case report.Skipped:
		s.logger.Warn().Str(log.FieldRunID, report.RunID).Msg("sweep skipped, backing off")
		s.increaseBackoff()
	default:
		s.resetBackoff()
	}
}

func (s *Scheduler) nextDuration(isFirst bool) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isFirst {
		return s.StartupDelay + s.jitterDuration()
	}

	interval := s.currentInterval
	if interval == 0 {
		interval = s.BaseInterval
	}
	return interval + s.jitterDuration()
}

// jitterDuration returns a random offset in [-Jitter, +Jitter).
func (s *Scheduler) jitterDuration() time.Duration {
	if s.Jitter <= 0 {
		return 0
	}
	ms := int64(s.Jitter / time.Millisecond)
	if ms == 0 {
		return 0
	}
	delta := rand.Int63n(ms*2) - ms
	return time.Duration(delta) * time.Millisecond
}

func (s *Scheduler) increaseBackoff() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentInterval == 0 {
		s.currentInterval = s.BaseInterval
	}

	s.currentInterval *= 2
	if s.currentInterval > s.MaxInterval {
		s.currentInterval = s.MaxInterval
	}
	s.logger.Info().Str("next_interval", s.currentInterval.String()).Msg("increased sweep backoff")
}

func (s *Scheduler) resetBackoff() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentInterval != s.BaseInterval {
		s.currentInterval = s.BaseInterval
	}
}
