// Package character ties a named character to the stat registry that holds
// its attributes.
package character

import (
	"time"

	"github.com/cory-johannsen/statengine/internal/game/stat"
	"github.com/cory-johannsen/statengine/internal/game/tag"
)

// Character is one character and its exclusively owned stat registry.
//
// A Character is not safe for concurrent use; drive it from a single
// goroutine such as a tick.Loop.
type Character struct {
	ID      string // UUID assigned at build time
	Name    string
	ClassID string // resolved class; empty when base initialisation was skipped
	Stats   *stat.Registry

	// Init records the outcome of base stat initialisation.
	Init stat.BaseInitResult

	CreatedAt time.Time
}

// Level returns the character level tracked by the registry.
func (c *Character) Level() int {
	return c.Stats.Level()
}

// LevelUp spends one level on stat t: its max rises by one, the registry
// level follows, and the stat's dependents are adjusted once.
//
// Postcondition: Returns the number of dependent adjustments and true, or
// (0, false) if t is not registered.
func (c *Character) LevelUp(t tag.Tag) (int, bool) {
	if _, _, ok := c.Stats.GetStat(t); !ok {
		return 0, false
	}
	return c.Stats.AdjustStatAndPropagate(t, stat.Max, 1, true), true
}

// Damage lowers the current value of t by amount and interrupts its
// regeneration.
func (c *Character) Damage(t tag.Tag, amount float64) {
	c.Stats.AdjustStat(t, stat.Current, -amount, false, true)
}

// Heal raises the current value of t by amount. Regeneration state is left
// untouched.
func (c *Character) Heal(t tag.Tag, amount float64) {
	c.Stats.AdjustStat(t, stat.Current, amount, false, false)
}

// Rest starts regeneration on every pool stat below its max.
//
// Postcondition: Returns the number of stats now regenerating.
func (c *Character) Rest() int {
	n := 0
	all, _ := c.Stats.GetAllStats()
	for _, s := range all {
		if !s.Regen().CanRegenerate {
			continue
		}
		c.Stats.ToggleRegen(s.Tag(), false)
		if s.RegenState() == stat.Regenerating {
			n++
		}
	}
	return n
}

// Snapshot captures the character's stat state.
func (c *Character) Snapshot() []stat.Snapshot {
	return c.Stats.Serialize()
}

// Restore applies snaps to the character's stats.
//
// Postcondition: Returns the number of entries applied.
func (c *Character) Restore(snaps []stat.Snapshot) int {
	return c.Stats.Deserialize(snaps)
}

// Close stops all regeneration owned by the character.
func (c *Character) Close() {
	c.Stats.Close()
}
