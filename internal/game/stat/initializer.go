package stat

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/statengine/internal/game/tag"
)

// BaseInitResult reports what InitializeBaseStats did.
type BaseInitResult struct {
	// ClassID is the class whose base values were applied; empty when aborted.
	ClassID string
	// Aborted is true when no class could be resolved.
	Aborted bool
	// Deltas holds the net max change of every stat changed by base values
	// or overrides.
	Deltas map[tag.Tag]float64
	// Propagated counts affect-rule mutations applied from those deltas.
	Propagated int
	// Refilled counts pool stats forced to full.
	Refilled int
}

// ResolveClass returns the class to initialize from: the registry's explicit
// class ID, else the SelectedClassProvider's.
func (r *Registry) ResolveClass() (string, bool) {
	if r.classID != "" {
		return r.classID, true
	}
	if r.selection != nil {
		if id, ok := r.selection.SelectedClass(); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// InitializeBaseStats resolves the character class's base values into the
// populated registry in two phases. First every stat takes its base value
// and recorded overrides are applied; then each stat's net max delta is
// propagated once through its affect-rules, so derived stats see final
// primary values rather than intermediate ones. Finally every pool stat is
// refilled.
//
// When no class source or class can be resolved the whole pass is skipped
// and stats keep their constructed values.
func (r *Registry) InitializeBaseStats() BaseInitResult {
	res := BaseInitResult{Deltas: make(map[tag.Tag]float64)}
	if r.classes == nil {
		r.logger.Warn("base stat initialization skipped: no class source")
		res.Aborted = true
		return res
	}
	classID, ok := r.ResolveClass()
	if !ok {
		r.logger.Warn("base stat initialization skipped: no class selected")
		res.Aborted = true
		return res
	}
	baseValues, ok := r.classes.BaseValuesFor(classID)
	if !ok {
		r.logger.Warn("base stat initialization skipped: unknown class", zap.String("class", classID))
		res.Aborted = true
		return res
	}
	res.ClassID = classID

	// Phase one must not propagate per stat.
	auto := r.autoPropagate
	r.autoPropagate = false
	defer func() { r.autoPropagate = auto }()

	tags := r.sortedTags()
	before := make(map[tag.Tag]float64, len(tags))
	for _, t := range tags {
		before[t] = r.stats[t].max
	}

	for _, t := range tags {
		r.stats[t].InitializeBaseClassValue(baseValues)
	}
	r.ApplyOverrides()

	for _, t := range tags {
		if d := r.stats[t].max - before[t]; d != 0 {
			res.Deltas[t] = d
		}
	}

	for _, t := range tags {
		d, changed := res.Deltas[t]
		if !changed {
			continue
		}
		s := r.stats[t]
		if !s.HasAffects() {
			continue
		}
		res.Propagated += r.AdjustAffectedStats(s, d, Max)
	}

	for _, t := range tags {
		s := r.stats[t]
		if s.pool || (r.poolCategory != "" && t.Matches(r.poolCategory)) {
			s.refill()
			res.Refilled++
		}
	}

	r.logger.Info("base stats initialized",
		zap.String("class", classID),
		zap.Int("changed", len(res.Deltas)),
		zap.Int("propagated", res.Propagated),
		zap.Int("refilled", res.Refilled),
	)
	return res
}
