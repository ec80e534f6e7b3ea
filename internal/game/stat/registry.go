package stat

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/statengine/internal/game/tag"
)

// DefaultPoolCategory is the tag category whose stats are refilled after
// base initialization.
const DefaultPoolCategory tag.Tag = "Stat.Secondary"

// Override replaces a stat's current and/or max value for one character.
// Nil fields are left unchanged.
type Override struct {
	Current *float64 `yaml:"current" json:"current,omitempty"`
	Max     *float64 `yaml:"max" json:"max,omitempty"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithScheduler sets the scheduler used for regeneration.
func WithScheduler(s Scheduler) Option {
	return func(r *Registry) { r.sched = s }
}

// WithClassSource sets the base value table source and the class to use.
// An empty classID falls back to the SelectedClassProvider.
func WithClassSource(src ClassSource, classID string) Option {
	return func(r *Registry) {
		r.classes = src
		r.classID = classID
	}
}

// WithSelectedClass sets the fallback provider consulted when no class ID
// was given.
func WithSelectedClass(p SelectedClassProvider) Option {
	return func(r *Registry) { r.selection = p }
}

// WithCurves sets the evaluator used for affect-rule curves.
func WithCurves(c CurveEvaluator) Option {
	return func(r *Registry) { r.curves = c }
}

// WithPoolCategory changes the category refilled after base initialization.
func WithPoolCategory(c tag.Tag) Option {
	return func(r *Registry) { r.poolCategory = c }
}

// WithAutoPropagate makes the registry propagate every cascading Update to
// the updated stat's affect-rules. Propagated changes never cascade again.
func WithAutoPropagate(enabled bool) Option {
	return func(r *Registry) { r.autoPropagate = enabled }
}

// WithObserver subscribes o to every stat in the registry.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.Subscribe(o) }
}

// Registry owns every stat of one character.
//
// It is not safe for concurrent use; all calls, including scheduled
// regeneration callbacks, must happen on one logical thread.
type Registry struct {
	stats map[tag.Tag]*Stat
	level int

	overrides        map[tag.Tag]Override
	overridesApplied bool

	classes       ClassSource
	classID       string
	selection     SelectedClassProvider
	curves        CurveEvaluator
	sched         Scheduler
	poolCategory  tag.Tag
	autoPropagate bool
	propagated    int // mutations from the last automatic propagation

	observers []Observer
	logger    *zap.Logger
}

// NewRegistry returns an empty Registry at level 1.
//
// Postcondition: logger may be nil, in which case logging is disabled.
func NewRegistry(logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		stats:        make(map[tag.Tag]*Stat),
		level:        1,
		overrides:    make(map[tag.Tag]Override),
		poolCategory: DefaultPoolCategory,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Level returns the character level, never below 1.
func (r *Registry) Level() int { return r.level }

// SetLevel sets the character level, floored at 1.
func (r *Registry) SetLevel(level int) {
	if level < 1 {
		level = 1
	}
	r.level = level
}

// Subscribe adds o as an external sink for every stat's notifications,
// including stats registered later. Observers run in subscription order.
//
// Precondition: o must be non-nil.
func (r *Registry) Subscribe(o Observer) {
	if o == nil {
		panic("stat.Registry.Subscribe: precondition violated: observer must be non-nil")
	}
	r.observers = append(r.observers, o)
}

// Register creates a stat from def and adds it to the registry. A stat
// already registered under the same tag is replaced.
//
// Precondition: def.Tag must be valid.
// Postcondition: GetStat(def.Tag) returns the new stat.
func (r *Registry) Register(def Definition) *Stat {
	if prev, ok := r.stats[def.Tag]; ok {
		r.logger.Warn("replacing registered stat", zap.String("tag", string(def.Tag)))
		prev.stopRegen()
	}
	s := NewStat(def, r.sched, r.logger)
	s.Subscribe(ObserverFuncs{Updated: r.onUpdated, LeveledUp: r.onLeveledUp})
	r.stats[def.Tag] = s
	return s
}

// Populate registers every definition in defs, in order.
func (r *Registry) Populate(defs []Definition) {
	for _, d := range defs {
		r.Register(d)
	}
}

// Len returns the number of active stats.
func (r *Registry) Len() int { return len(r.stats) }

// GetStat looks up a stat by tag.
//
// Postcondition: Returns (nil, Snapshot{}, false) when the tag is unknown.
func (r *Registry) GetStat(t tag.Tag) (*Stat, Snapshot, bool) {
	s, ok := r.stats[t]
	if !ok {
		return nil, Snapshot{}, false
	}
	return s, s.Info(), true
}

// GetAllStats returns every active stat in tag order, plus the mapping from
// stat tag to class path used for display grouping.
func (r *Registry) GetAllStats() ([]*Stat, map[tag.Tag]tag.Tag) {
	tags := r.sortedTags()
	out := make([]*Stat, 0, len(tags))
	classes := make(map[tag.Tag]tag.Tag, len(tags))
	for _, t := range tags {
		s := r.stats[t]
		out = append(out, s)
		classes[t] = s.class
	}
	return out, classes
}

// GetStatsForCategory returns every active tag equal to or descending from category.
func (r *Registry) GetStatsForCategory(category tag.Tag) tag.Set {
	out := tag.NewSet()
	for t := range r.stats {
		if t.Matches(category) {
			out.Add(t)
		}
	}
	return out
}

// ResetStat forces the stat's current value to its max and publishes a
// zero-delta Update. Unknown tags are ignored.
func (r *Registry) ResetStat(t tag.Tag) {
	s, ok := r.lookup(t, "ResetStat")
	if !ok {
		return
	}
	s.current = s.max
	s.publish(Update{Stat: s, Change: 0, Cascade: true, ValueType: Current})
}

// AdjustStat is the sanctioned external mutation entry point. It forwards to
// Stat.AdjustValue; unknown tags are ignored.
func (r *Registry) AdjustStat(t tag.Tag, vt ValueType, change float64, isLevelUp, triggerRegen bool) {
	s, ok := r.lookup(t, "AdjustStat")
	if !ok {
		return
	}
	s.AdjustValue(vt, change, isLevelUp, triggerRegen)
}

// IsStatMoreThan reports whether the stat's current value exceeds threshold.
//
// Postcondition: Returns false for unknown tags.
func (r *Registry) IsStatMoreThan(t tag.Tag, threshold float64) bool {
	s, ok := r.stats[t]
	return ok && s.current > threshold
}

// ToggleRegen starts or stops regeneration on the named stat.
func (r *Registry) ToggleRegen(t tag.Tag, stop bool) {
	s, ok := r.lookup(t, "ToggleRegen")
	if !ok {
		return
	}
	s.ToggleRegen(stop)
}

// SetOverrides records per-character overrides, applied once by
// ApplyOverrides or InitializeBaseStats.
func (r *Registry) SetOverrides(overrides map[tag.Tag]Override) {
	r.overrides = make(map[tag.Tag]Override, len(overrides))
	for t, o := range overrides {
		r.overrides[t] = o
	}
	r.overridesApplied = false
}

// ApplyOverrides writes recorded overrides onto their stats. Overrides for
// unknown tags are skipped. Subsequent calls are no-ops until SetOverrides
// is called again.
//
// Postcondition: Returns the number of stats changed.
func (r *Registry) ApplyOverrides() int {
	if r.overridesApplied {
		return 0
	}
	r.overridesApplied = true
	tags := make([]tag.Tag, 0, len(r.overrides))
	for t := range r.overrides {
		tags = append(tags, t)
	}
	tag.Sort(tags)

	applied := 0
	for _, t := range tags {
		s, ok := r.lookup(t, "ApplyOverrides")
		if !ok {
			continue
		}
		o := r.overrides[t]
		if o.Max != nil {
			s.AdjustValue(Max, *o.Max-s.max, false, false)
		}
		if o.Current != nil {
			s.AdjustValue(Current, *o.Current-s.current, false, false)
		}
		applied++
	}
	return applied
}

// ResetAll destroys every stat, stopping all regeneration.
//
// Postcondition: Len() == 0.
func (r *Registry) ResetAll() {
	for _, s := range r.stats {
		s.stopRegen()
	}
	r.stats = make(map[tag.Tag]*Stat)
}

// Close stops all regeneration tasks. The registry remains readable.
func (r *Registry) Close() {
	for _, s := range r.stats {
		s.stopRegen()
	}
}

func (r *Registry) lookup(t tag.Tag, op string) (*Stat, bool) {
	s, ok := r.stats[t]
	if !ok {
		r.logger.Debug("unknown stat tag", zap.String("op", op), zap.String("tag", string(t)))
	}
	return s, ok
}

func (r *Registry) sortedTags() []tag.Tag {
	tags := make([]tag.Tag, 0, len(r.stats))
	for t := range r.stats {
		tags = append(tags, t)
	}
	tag.Sort(tags)
	return tags
}

func (r *Registry) onUpdated(u Update) {
	if r.autoPropagate && u.Cascade && u.Change != 0 {
		r.propagated = r.AdjustAffectedStats(u.Stat, u.Change, u.ValueType)
	}
	for _, o := range r.observers {
		o.StatUpdated(u)
	}
}

func (r *Registry) onLeveledUp(l LevelUp) {
	r.SetLevel(r.level + l.Delta)
	for _, o := range r.observers {
		o.StatLeveledUp(l)
	}
}
