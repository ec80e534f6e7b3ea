// Package tick provides a single-threaded scheduler for recurring game tasks
// and a Loop that drives it from wall-clock time.
package tick

import "time"

// Task is a recurring callback registered with a Scheduler.
// The Task value is the cancellation token for that schedule.
type Task struct {
	interval time.Duration
	next     time.Duration
	seq      uint64
	fn       func()
	active   bool
}

// Cancel stops the task from firing again. Safe to call multiple times,
// including from within the task's own callback.
//
// Postcondition: Active() is false.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.active = false
}

// Active reports whether the task is still scheduled.
func (t *Task) Active() bool {
	return t != nil && t.active
}

// Interval returns the period the task was scheduled with.
func (t *Task) Interval() time.Duration {
	if t == nil {
		return 0
	}
	return t.interval
}

// Scheduler runs recurring tasks against a virtual clock that only moves when
// Advance is called. All callbacks run synchronously on the goroutine calling
// Advance.
//
// It is not safe for concurrent use; the caller must serialise access.
type Scheduler struct {
	now   time.Duration
	seq   uint64
	tasks []*Task
}

// NewScheduler returns an empty Scheduler at time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the elapsed scheduler time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Every schedules fn to run once per interval of scheduler time, starting one
// interval from now.
//
// Precondition: fn must be non-nil.
// Postcondition: Returns nil and schedules nothing when interval <= 0.
func (s *Scheduler) Every(interval time.Duration, fn func()) *Task {
	if interval <= 0 || fn == nil {
		return nil
	}
	s.seq++
	t := &Task{
		interval: interval,
		next:     s.now + interval,
		seq:      s.seq,
		fn:       fn,
		active:   true,
	}
	s.tasks = append(s.tasks, t)
	return t
}

// After schedules fn to run once, d of scheduler time from now. The
// returned Task may be cancelled before it fires.
//
// Postcondition: Returns nil and schedules nothing when d <= 0.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	if fn == nil {
		return nil
	}
	var t *Task
	t = s.Every(d, func() {
		t.Cancel()
		fn()
	})
	return t
}

// Pending returns the number of active tasks.
func (s *Scheduler) Pending() int {
	n := 0
	for _, t := range s.tasks {
		if t.active {
			n++
		}
	}
	return n
}

// Advance moves scheduler time forward by d and fires every task that falls
// due, in due-time order and then registration order. A task due several
// times within d fires once per elapsed interval. Tasks cancelled by an
// earlier callback are skipped; tasks scheduled by a callback only fire if
// they fall due before the end of d.
//
// Postcondition: Now() has increased by d (d <= 0 is a no-op).
func (s *Scheduler) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	target := s.now + d
	for {
		t := s.nextDue(target)
		if t == nil {
			break
		}
		s.now = t.next
		t.next += t.interval
		t.fn()
	}
	s.now = target
	s.compact()
}

// nextDue returns the earliest active task due at or before target.
func (s *Scheduler) nextDue(target time.Duration) *Task {
	var best *Task
	for _, t := range s.tasks {
		if !t.active || t.next > target {
			continue
		}
		if best == nil || t.next < best.next || (t.next == best.next && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

// compact drops cancelled tasks, keeping registration order.
func (s *Scheduler) compact() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if t.active {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
}
