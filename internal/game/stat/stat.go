package stat

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/statengine/internal/game/tag"
	"github.com/cory-johannsen/statengine/internal/game/tick"
)

// Stat is one numeric gameplay attribute with current and max values.
//
// Invariant: Min() <= Max() and Min() <= Current() <= Max() after every
// exported method returns.
//
// A Stat is not safe for concurrent use; it belongs to exactly one Registry
// and is driven from a single logical thread.
type Stat struct {
	tag         tag.Tag
	class       tag.Tag
	displayName string
	description string

	current float64
	max     float64
	min     float64

	onlyMaxValueRelevant bool
	displayAsPercent     bool
	showMaxValue         bool
	pool                 bool

	regen   RegenInfo
	affects []Affect

	sched     Scheduler
	regenTask *tick.Task
	observers []Observer
	logger    *zap.Logger
}

// NewStat builds a Stat from def.
//
// Precondition: def.Tag must be valid.
// Postcondition: the clamp invariant holds; Current() == Max() when def.Current is nil.
// sched and logger may be nil (no regeneration, no logging).
func NewStat(def Definition, sched Scheduler, logger *zap.Logger) *Stat {
	if !def.Tag.Valid() {
		panic("stat.NewStat: precondition violated: definition tag must be valid")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stat{
		tag:                  def.Tag,
		class:                def.Class,
		displayName:          def.DisplayName,
		description:          def.Description,
		min:                  def.Min,
		max:                  math.Max(def.Max, def.Min),
		onlyMaxValueRelevant: def.OnlyMaxValueRelevant,
		displayAsPercent:     def.DisplayAsPercent,
		showMaxValue:         def.ShowMaxValue,
		pool:                 def.Pool,
		regen:                def.Regen,
		affects:              cloneAffects(def.Affects),
		sched:                sched,
		logger:               logger.With(zap.String("stat", string(def.Tag))),
	}
	s.current = s.max
	if def.Current != nil && !s.onlyMaxValueRelevant {
		s.current = clamp(*def.Current, s.min, s.max)
	}
	return s
}

// Tag returns the stat's unique tag.
func (s *Stat) Tag() tag.Tag { return s.tag }

// Class returns the stat's class path used for base value lookup.
func (s *Stat) Class() tag.Tag { return s.class }

// DisplayName returns the presentation name.
func (s *Stat) DisplayName() string { return s.displayName }

// Description returns the presentation description.
func (s *Stat) Description() string { return s.description }

// Current returns the current value.
func (s *Stat) Current() float64 { return s.current }

// Max returns the max value.
func (s *Stat) Max() float64 { return s.max }

// Min returns the floor shared by current and max.
func (s *Stat) Min() float64 { return s.min }

// OnlyMaxValueRelevant reports whether the stat has no independent current value.
func (s *Stat) OnlyMaxValueRelevant() bool { return s.onlyMaxValueRelevant }

// IsPool reports whether the stat was declared a depletable resource.
func (s *Stat) IsPool() bool { return s.pool }

// Regen returns the regeneration configuration.
func (s *Stat) Regen() RegenInfo { return s.regen }

// Affects returns a copy of the declared affect-rules, in declaration order.
func (s *Stat) Affects() []Affect { return cloneAffects(s.affects) }

// HasAffects reports whether the stat declares any affect-rules.
func (s *Stat) HasAffects() bool {
	for _, a := range s.affects {
		if len(a.Rules) > 0 {
			return true
		}
	}
	return false
}

// Subscribe appends o to the stat's observers.
//
// Precondition: o must be non-nil.
func (s *Stat) Subscribe(o Observer) {
	if o == nil {
		panic("stat.Stat.Subscribe: precondition violated: observer must be non-nil")
	}
	s.observers = append(s.observers, o)
}

// AdjustValue changes the current or max value by change and publishes an
// Update with Cascade set. Stats with OnlyMaxValueRelevant redirect Current
// adjustments to Max. A negative Current adjustment with triggerRegen set
// stops any running regeneration. When isLevelUp is set a LevelUp carrying
// the rounded change is published before the Update, so the registry level
// has already moved when the Update is propagated.
//
// Postcondition: the clamp invariant holds.
func (s *Stat) AdjustValue(vt ValueType, change float64, isLevelUp, triggerRegen bool) {
	if vt == Current && change < 0 && triggerRegen {
		s.ToggleRegen(true)
	}
	applied := s.apply(vt, change)
	if isLevelUp {
		s.publishLevelUp(LevelUp{Stat: s, Delta: int(math.Round(change))})
	}
	s.publish(Update{Stat: s, Change: change, Cascade: true, ValueType: applied})
}

// AdjustAffectedValue applies the same mutation as AdjustValue but publishes
// an Update with Cascade unset, so observers that propagate changes stop here.
//
// Postcondition: the clamp invariant holds.
func (s *Stat) AdjustAffectedValue(vt ValueType, change float64) {
	applied := s.apply(vt, change)
	s.publish(Update{Stat: s, Change: change, Cascade: false, ValueType: applied})
}

// CalculatePercent returns current/max as a percentage in [0, 100].
//
// Postcondition: Returns 0 when Max() <= 0.
func (s *Stat) CalculatePercent() float64 {
	if s.max <= 0 {
		return 0
	}
	return clamp(s.current/s.max*100, 0, 100)
}

// InitializeBaseClassValue sets the max value from baseValues, keyed by class
// path. The stat's class path is walked from most to least specific and the
// first present key wins. The difference is applied through AdjustValue.
//
// Postcondition: Returns the delta actually applied to max and true when a
// key matched and max changed; (0, false) otherwise.
func (s *Stat) InitializeBaseClassValue(baseValues map[tag.Tag]float64) (float64, bool) {
	if s.class == "" {
		s.logger.Debug("no class path; skipping base value")
		return 0, false
	}
	for _, c := range s.class.Lineage() {
		base, ok := baseValues[c]
		if !ok {
			continue
		}
		change := base - s.max
		if change == 0 {
			return 0, false
		}
		before := s.max
		s.AdjustValue(Max, change, false, false)
		applied := s.max - before
		s.logger.Debug("base class value applied",
			zap.String("class", string(c)),
			zap.Float64("base", base),
			zap.Float64("change", applied),
		)
		return applied, applied != 0
	}
	s.logger.Debug("no base class value matched", zap.String("class", string(s.class)))
	return 0, false
}

// Info returns a value copy of the stat's full state.
func (s *Stat) Info() Snapshot {
	return Snapshot{
		Tag:                  s.tag,
		DisplayName:          s.displayName,
		Description:          s.description,
		Current:              s.current,
		Max:                  s.max,
		Min:                  s.min,
		OnlyMaxValueRelevant: s.onlyMaxValueRelevant,
		DisplayAsPercent:     s.displayAsPercent,
		ShowMaxValue:         s.showMaxValue,
		Regen:                s.regen,
	}
}

// refill forces current to max and publishes a zero-delta Update.
func (s *Stat) refill() {
	s.current = s.max
	s.publish(Update{Stat: s, Change: 0, Cascade: false, ValueType: Current})
}

// apply mutates the value and restores the clamp invariant. It returns the
// value type actually written.
func (s *Stat) apply(vt ValueType, change float64) ValueType {
	if s.onlyMaxValueRelevant {
		vt = Max
	}
	if math.IsNaN(change) || math.IsInf(change, 0) {
		s.logger.Warn("ignoring non-finite adjustment", zap.Stringer("value_type", vt))
		return vt
	}
	switch vt {
	case Max:
		s.max = math.Max(s.max+change, s.min)
		if s.onlyMaxValueRelevant {
			s.current = s.max
		}
		s.current = clamp(s.current, s.min, s.max)
	default:
		s.current = clamp(s.current+change, s.min, s.max)
	}
	return vt
}

func (s *Stat) publish(u Update) {
	for _, o := range s.observers {
		o.StatUpdated(u)
	}
}

func (s *Stat) publishLevelUp(l LevelUp) {
	for _, o := range s.observers {
		o.StatLeveledUp(l)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cloneAffects(in []Affect) []Affect {
	if len(in) == 0 {
		return nil
	}
	out := make([]Affect, len(in))
	for i, a := range in {
		out[i] = Affect{Tag: a.Tag, Rules: append([]AffectRule(nil), a.Rules...)}
	}
	return out
}
