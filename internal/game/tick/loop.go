package tick

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Loop owns a Scheduler and advances it from a wall-clock ticker. All
// scheduled callbacks and all submitted work run on the loop goroutine, so
// state touched only from there needs no locking.
//
// Invariant: the Scheduler is only accessed from the loop goroutine once
// Start or Run has been called.
type Loop struct {
	resolution time.Duration
	sched      *Scheduler
	logger     *zap.Logger

	mu    sync.Mutex
	queue []func()
}

// NewLoop returns a Loop that advances its scheduler every resolution.
//
// Precondition: resolution must be > 0; logger must be non-nil.
func NewLoop(resolution time.Duration, logger *zap.Logger) *Loop {
	if resolution <= 0 {
		panic("tick.NewLoop: resolution must be > 0")
	}
	return &Loop{
		resolution: resolution,
		sched:      NewScheduler(),
		logger:     logger,
	}
}

// Scheduler returns the loop's scheduler. Callers must only use it from
// work submitted to the loop or before the loop starts.
func (l *Loop) Scheduler() *Scheduler {
	return l.sched
}

// Submit enqueues fn to run on the loop goroutine before the next advance.
// Safe to call from any goroutine.
func (l *Loop) Submit(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
}

// Step drains submitted work and then advances the scheduler by d.
// Run and Start call it once per resolution; tests may call it directly.
func (l *Loop) Step(d time.Duration) {
	l.mu.Lock()
	work := l.queue
	l.queue = nil
	l.mu.Unlock()
	for _, fn := range work {
		fn()
	}
	l.sched.Advance(d)
}

// Run advances the scheduler once per resolution until ctx is cancelled.
//
// Postcondition: returns ctx.Err() after the final step.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.resolution)
	defer ticker.Stop()
	l.logger.Debug("tick loop started", zap.Duration("resolution", l.resolution))
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("tick loop stopped", zap.Duration("elapsed", l.sched.Now()))
			return ctx.Err()
		case <-ticker.C:
			l.Step(l.resolution)
		}
	}
}

// Start launches Run in a new goroutine and returns a stop function.
// Calling stop is idempotent and waits for the loop goroutine to exit.
func (l *Loop) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
