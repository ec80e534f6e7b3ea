// Package stat implements per-character numeric attributes: the Stat entity,
// the Registry that owns a character's stats, single-hop propagation of
// declared affect-rules, timer-driven regeneration, class base-value
// initialization, and snapshot save/restore.
//
// Nothing in this package returns errors from gameplay operations. Unknown
// tags and bad designer data are logged and absorbed.
package stat

import (
	"time"

	"github.com/cory-johannsen/statengine/internal/game/tag"
	"github.com/cory-johannsen/statengine/internal/game/tick"
)

// ValueType selects which half of a stat an adjustment targets.
type ValueType int

const (
	// Current targets the stat's current value.
	Current ValueType = iota
	// Max targets the stat's maximum value.
	Max
)

// String returns "current" or "max".
func (v ValueType) String() string {
	if v == Max {
		return "max"
	}
	return "current"
}

// RegenState is the regeneration state of a single stat.
type RegenState int

const (
	// Idle means no regeneration task is scheduled.
	Idle RegenState = iota
	// Regenerating means a recurring regeneration task is scheduled.
	Regenerating
)

// String returns "idle" or "regenerating".
func (r RegenState) String() string {
	if r == Regenerating {
		return "regenerating"
	}
	return "idle"
}

// RegenInfo configures periodic regeneration.
type RegenInfo struct {
	CanRegenerate        bool          `yaml:"can_regenerate" json:"can_regenerate"`
	Interval             time.Duration `yaml:"interval" json:"interval"`
	FractionOfMaxPerTick float64       `yaml:"fraction_of_max_per_tick" json:"fraction_of_max_per_tick"`
}

// AffectRule is one declared edge from a source stat to an affected stat:
// a change of X on the source applies X*Modifier to the target's current or
// max value.
type AffectRule struct {
	// FromLevel and UntilLevel bound the character levels the rule applies at.
	// Zero means unbounded on that side.
	FromLevel  int `yaml:"from_level" json:"from_level"`
	UntilLevel int `yaml:"until_level" json:"until_level"`
	// AffectsMaxValue targets the max value instead of the current value.
	AffectsMaxValue bool    `yaml:"affects_max_value" json:"affects_max_value"`
	Modifier        float64 `yaml:"modifier" json:"modifier"`
	// Curve names a scripted scaling curve evaluated at the character level.
	// Empty means a factor of 1.
	Curve string `yaml:"curve" json:"curve,omitempty"`
}

// AppliesAt reports whether the rule is active at level.
func (r AffectRule) AppliesAt(level int) bool {
	if r.FromLevel > 0 && level < r.FromLevel {
		return false
	}
	if r.UntilLevel > 0 && level > r.UntilLevel {
		return false
	}
	return true
}

// Target returns the value type the rule writes to.
func (r AffectRule) Target() ValueType {
	if r.AffectsMaxValue {
		return Max
	}
	return Current
}

// Affect lists every rule from one source stat onto the stat named by Tag.
type Affect struct {
	Tag   tag.Tag      `yaml:"tag" json:"tag"`
	Rules []AffectRule `yaml:"rules" json:"rules"`
}

// Update is published whenever a stat's value changes or is refreshed.
type Update struct {
	Stat *Stat
	// Change is the requested delta; zero for refresh-only notifications.
	Change float64
	// Cascade is false for changes that were themselves produced by
	// propagation or regeneration and must not propagate further.
	Cascade   bool
	ValueType ValueType
}

// LevelUp is published when an adjustment is flagged as a level up.
type LevelUp struct {
	Stat  *Stat
	Delta int
}

// Observer receives stat notifications synchronously, in subscription order.
type Observer interface {
	StatUpdated(Update)
	StatLeveledUp(LevelUp)
}

// ObserverFuncs adapts optional callbacks to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Updated   func(Update)
	LeveledUp func(LevelUp)
}

// StatUpdated calls f.Updated when set.
func (f ObserverFuncs) StatUpdated(u Update) {
	if f.Updated != nil {
		f.Updated(u)
	}
}

// StatLeveledUp calls f.LeveledUp when set.
func (f ObserverFuncs) StatLeveledUp(l LevelUp) {
	if f.LeveledUp != nil {
		f.LeveledUp(l)
	}
}

// Scheduler schedules recurring callbacks. *tick.Scheduler satisfies it.
type Scheduler interface {
	Every(interval time.Duration, fn func()) *tick.Task
}

// ClassSource resolves a character class to its base values, keyed by stat
// class path.
type ClassSource interface {
	BaseValuesFor(classID string) (map[tag.Tag]float64, bool)
}

// SelectedClassProvider supplies the class to use when a registry was not
// given one explicitly.
type SelectedClassProvider interface {
	SelectedClass() (string, bool)
}

// CurveEvaluator scales affect-rule changes by a named curve at a level.
// ok is false when the curve is unknown or failed; the factor is then 1.
type CurveEvaluator interface {
	Evaluate(curve string, level int) (factor float64, ok bool)
}
