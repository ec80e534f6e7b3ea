package sim

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/statengine/internal/game/character"
	"github.com/cory-johannsen/statengine/internal/game/dice"
	"github.com/cory-johannsen/statengine/internal/game/tick"
)

// Event records one executed step.
type Event struct {
	At   time.Duration
	Step Step
	// Applied is false when the step named a stat the character lacks.
	Applied bool
	// Count is the number of dependents adjusted by level_up or stats
	// regenerating after rest.
	Count int
	// Amount is the damage or healing applied, after any roll.
	Amount float64
	// Roll is the rendered dice roll, when the step rolled one.
	Roll string
}

// Runner applies scenario steps to one character from scheduler callbacks.
//
// A Runner is not safe for concurrent use; it must run on the goroutine that
// drives sched.
type Runner struct {
	char   *character.Character
	sched  *tick.Scheduler
	roller *dice.Roller
	logger *zap.Logger
	events []Event
	tasks  []*tick.Task
}

// NewRunner returns a Runner for c whose steps are timed by sched. The
// character's registry must share sched for regeneration to advance with
// the scenario.
//
// Precondition: c and sched must be non-nil.
func NewRunner(c *character.Character, sched *tick.Scheduler, logger *zap.Logger) *Runner {
	if c == nil || sched == nil {
		panic("sim.NewRunner: character and scheduler must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("character", c.Name))
	return &Runner{
		char:   c,
		sched:  sched,
		roller: dice.NewRoller(dice.NewCryptoSource(), logger),
		logger: logger,
	}
}

// SetDiceSource replaces the source used for step rolls.
func (r *Runner) SetDiceSource(src dice.Source) {
	r.roller = dice.NewRoller(src, r.logger)
}

// Schedule registers every step of sc relative to the scheduler's current
// time. Steps at zero run immediately; steps sharing a time run in
// declaration order. A scenario seed replaces the dice source.
func (r *Runner) Schedule(sc *Scenario) {
	if sc.Seed != 0 {
		r.SetDiceSource(dice.NewSeededSource(sc.Seed))
	}
	r.logger.Info("scenario scheduled",
		zap.String("scenario", sc.Name),
		zap.Int("steps", len(sc.Steps)),
		zap.Duration("duration", sc.Duration),
	)
	for _, st := range sc.Steps {
		if st.At == 0 {
			r.apply(st)
			continue
		}
		r.tasks = append(r.tasks, r.sched.After(st.At, func() { r.apply(st) }))
	}
}

// Cancel drops every step that has not fired yet.
func (r *Runner) Cancel() {
	for _, t := range r.tasks {
		t.Cancel()
	}
	r.tasks = nil
}

// Events returns the executed steps in firing order.
func (r *Runner) Events() []Event {
	return append([]Event(nil), r.events...)
}

func (r *Runner) apply(st Step) {
	ev := Event{At: r.sched.Now(), Step: st, Applied: true}
	stats := r.char.Stats
	if st.Action.needsStat() {
		if _, _, ok := stats.GetStat(st.Stat); !ok {
			ev.Applied = false
		}
	}
	if ev.Applied {
		switch st.Action {
		case ActionDamage:
			ev.Amount, ev.Roll = r.amount(st)
			r.char.Damage(st.Stat, ev.Amount)
		case ActionHeal:
			ev.Amount, ev.Roll = r.amount(st)
			r.char.Heal(st.Stat, ev.Amount)
		case ActionRest:
			ev.Count = r.char.Rest()
		case ActionLevelUp:
			ev.Count, _ = r.char.LevelUp(st.Stat)
		case ActionReset:
			stats.ResetStat(st.Stat)
		case ActionStopRegen:
			stats.ToggleRegen(st.Stat, true)
		}
	}
	r.events = append(r.events, ev)
	r.logger.Debug("scenario step",
		zap.Duration("at", ev.At),
		zap.String("action", string(st.Action)),
		zap.String("tag", string(st.Stat)),
		zap.Bool("applied", ev.Applied),
	)
}

// amount resolves a damage or heal step; negative rolls count as zero.
func (r *Runner) amount(st Step) (float64, string) {
	if st.Roll == "" {
		return st.Amount, ""
	}
	res, err := r.roller.RollExpr(st.Roll)
	if err != nil {
		r.logger.Warn("scenario roll failed", zap.String("roll", st.Roll), zap.Error(err))
		return 0, ""
	}
	return float64(max(res.Total(), 0)), res.String()
}

// Simulate runs sc against r in virtual time: the steps are scheduled
// through loop and the loop is stepped by resolution until the scenario's
// duration has elapsed.
//
// Precondition: resolution must be > 0; loop must not be running.
// Postcondition: loop's scheduler has advanced by exactly sc.Duration.
func Simulate(loop *tick.Loop, r *Runner, sc *Scenario, resolution time.Duration) []Event {
	loop.Submit(func() { r.Schedule(sc) })
	for elapsed := time.Duration(0); elapsed < sc.Duration; {
		d := min(resolution, sc.Duration-elapsed)
		loop.Step(d)
		elapsed += d
	}
	return r.Events()
}
