package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type MockClock struct {
	mu    sync.Mutex
	Timer *MockTimer
}

func (m *MockClock) Now() time.Time { return time.Now() }

func (m *MockClock) NewTimer(time.Duration) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Timer == nil {
		m.Timer = &MockTimer{CBox: make(chan time.Time, 1)}
	}
	return m.Timer
}

func (m *MockClock) GetTimer() *MockTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Timer
}

type MockTimer struct {
	CBox chan time.Time
}

func (m *MockTimer) C() <-chan time.Time     { return m.CBox }
func (m *MockTimer) Stop() bool              { return true }
func (m *MockTimer) Reset(time.Duration) bool { return true }

func (m *MockTimer) Trigger() {
	select {
	case m.CBox <- time.Now():
	default:
	}
}

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, contextID string) (Report, error) {
	args := m.Called(ctx, contextID)
	return args.Get(0).(Report), args.Error(1)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) Release(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func startScheduler(t *testing.T, s *Scheduler) (*MockClock, func()) {
	t.Helper()
	clock := &MockClock{}
	s.clock = clock
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	assert.Eventually(t, func() bool { return clock.GetTimer() != nil }, time.Second, 5*time.Millisecond)
	return clock, func() {
		cancel()
		<-done
	}
}

func TestSchedulerRunsAllContextSweep(t *testing.T) {
	runner := new(MockRunner)
	runs := make(chan struct{}, 1)
	runner.On("Run", mock.Anything, "").Return(Report{RunID: "r1"}, nil).Run(func(mock.Arguments) {
		runs <- struct{}{}
	})

	s := NewScheduler(runner, nil)
	clock, stop := startScheduler(t, s)
	defer stop()

	clock.GetTimer().Trigger()
	select {
	case <-runs:
	case <-time.After(time.Second):
		t.Fatal("sweep was not triggered")
	}
}

func TestSchedulerSkipsWhenLockHeld(t *testing.T) {
	runner := new(MockRunner)
	locker := new(MockLocker)
	attempts := make(chan struct{}, 1)
	locker.On("Acquire", mock.Anything).Return(false, nil).Run(func(mock.Arguments) {
		attempts <- struct{}{}
	})

	s := NewScheduler(runner, locker)
	clock, stop := startScheduler(t, s)

	clock.GetTimer().Trigger()
	select {
	case <-attempts:
	case <-time.After(time.Second):
		t.Fatal("lock was not attempted")
	}
	stop()

	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	locker.AssertNotCalled(t, "Release", mock.Anything)
}

func TestSchedulerReleasesLockAfterRun(t *testing.T) {
	runner := new(MockRunner)
	locker := new(MockLocker)
	released := make(chan struct{}, 1)
	locker.On("Acquire", mock.Anything).Return(true, nil)
	locker.On("Release", mock.Anything).Return(nil).Run(func(mock.Arguments) {
		released <- struct{}{}
	})
	runner.On("Run", mock.Anything, "").Return(Report{}, nil)

	s := NewScheduler(runner, locker)
	clock, stop := startScheduler(t, s)
	defer stop()

	clock.GetTimer().Trigger()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("lock was not released")
	}
}

func TestSchedulerBackoff(t *testing.T) {
	s := NewScheduler(new(MockRunner), nil)
	s.BaseInterval = time.Minute
	s.MaxInterval = 3 * time.Minute
	s.Jitter = 0

	s.increaseBackoff()
	assert.Equal(t, 2*time.Minute, s.nextDuration(false))
	s.increaseBackoff()
	assert.Equal(t, 3*time.Minute, s.nextDuration(false))
	s.resetBackoff()
	assert.Equal(t, time.Minute, s.nextDuration(false))
}

func TestSchedulerBacksOffOnFailure(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, "").Return(Report{}, errors.New("store down")).Once()

	s := NewScheduler(runner, nil)
	s.BaseInterval = time.Minute
	s.MaxInterval = 10 * time.Minute
	s.Jitter = 0

	s.tick(context.Background())
	assert.Equal(t, 2*time.Minute, s.nextDuration(false))

	runner.On("Run", mock.Anything, "").Return(Report{Skipped: true}, nil).Once()
	s.tick(context.Background())
	assert.Equal(t, 4*time.Minute, s.nextDuration(false))
}
