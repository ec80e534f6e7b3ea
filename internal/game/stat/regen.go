package stat

import (
	"math"

	"go.uber.org/zap"
)

// regenEpsilon absorbs rounding so fractions like 1/3 complete in exactly
// ceil(1/fraction) ticks.
const regenEpsilon = 1e-9

// RegenState reports whether the stat currently has a regeneration task.
func (s *Stat) RegenState() RegenState {
	if s.regenTask.Active() {
		return Regenerating
	}
	return Idle
}

// ToggleRegen starts (stop=false) or stops (stop=true) periodic regeneration.
//
// Starting requires CanRegenerate, a positive interval and fraction, a
// scheduler, and Current() < Max(); otherwise it is a logged no-op. Starting
// while already regenerating replaces the existing task. Stopping an idle
// stat is a no-op.
func (s *Stat) ToggleRegen(stop bool) {
	if stop {
		s.stopRegen()
		return
	}
	s.startRegen()
}

func (s *Stat) startRegen() {
	switch {
	case !s.regen.CanRegenerate:
		s.logger.Debug("regen not started: stat cannot regenerate")
		return
	case s.regen.Interval <= 0:
		s.logger.Debug("regen not started: non-positive interval", zap.Duration("interval", s.regen.Interval))
		return
	case s.regen.FractionOfMaxPerTick <= 0:
		s.logger.Debug("regen not started: non-positive fraction", zap.Float64("fraction", s.regen.FractionOfMaxPerTick))
		return
	case s.sched == nil:
		s.logger.Debug("regen not started: no scheduler")
		return
	case s.current >= s.max:
		return
	}
	s.stopRegen()
	s.regenTask = s.sched.Every(s.regen.Interval, s.regenTick)
	s.logger.Debug("regen started", zap.Duration("interval", s.regen.Interval))
}

func (s *Stat) stopRegen() {
	if s.regenTask == nil {
		return
	}
	s.regenTask.Cancel()
	s.regenTask = nil
}

// regenTick raises current by a fraction of max, capped at max, and cancels
// itself once the stat is full.
func (s *Stat) regenTick() {
	if s.current < s.max {
		amount := s.max * s.regen.FractionOfMaxPerTick
		next := math.Min(s.current+amount, s.max)
		if s.max-next <= regenEpsilon*math.Max(1, math.Abs(s.max)) {
			next = s.max
		}
		delta := next - s.current
		s.current = next
		if delta != 0 {
			s.publish(Update{Stat: s, Change: delta, Cascade: false, ValueType: Current})
		}
	}
	if s.current >= s.max {
		s.stopRegen()
	}
}
