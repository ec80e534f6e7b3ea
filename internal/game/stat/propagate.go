package stat

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/statengine/internal/game/tag"
)

// AdjustAffectedStats applies source's declared affect-rules for a change of
// change on source. Each applicable rule adds change*Modifier (times the
// rule's curve factor at the current level) to the affected stat's current
// or max value.
//
// Affected stats are written with AdjustAffectedValue, which never
// propagates further, so the depth is exactly one hop whatever the shape of
// the dependency graph. Multi-hop derivations are explicit further calls.
//
// Postcondition: Returns the number of mutations applied; for rules without
// level bounds this equals the number of (affected tag, rule) pairs whose
// tag is registered.
func (r *Registry) AdjustAffectedStats(source *Stat, change float64, vt ValueType) int {
	if source == nil {
		return 0
	}
	applied := 0
	for _, a := range source.affects {
		target, ok := r.stats[a.Tag]
		if !ok {
			r.logger.Debug("affected stat not registered",
				zap.String("source", string(source.tag)),
				zap.String("tag", string(a.Tag)),
			)
			continue
		}
		for _, rule := range a.Rules {
			if !rule.AppliesAt(r.level) {
				continue
			}
			scaled := change * rule.Modifier * r.curveFactor(rule.Curve)
			target.AdjustAffectedValue(rule.Target(), scaled)
			applied++
		}
	}
	r.logger.Debug("affected stats adjusted",
		zap.String("source", string(source.tag)),
		zap.Stringer("value_type", vt),
		zap.Float64("change", change),
		zap.Int("mutations", applied),
	)
	return applied
}

// AdjustAffected resolves t and calls AdjustAffectedStats. Unknown tags are ignored.
func (r *Registry) AdjustAffected(t tag.Tag, change float64, vt ValueType) int {
	s, ok := r.lookup(t, "AdjustAffected")
	if !ok {
		return 0
	}
	return r.AdjustAffectedStats(s, change, vt)
}

// AdjustStatAndPropagate adjusts t and then applies its affect-rules once
// with the same change. With auto-propagation on, the registry's own
// propagation is that single pass.
//
// Postcondition: Returns the number of dependent mutations applied.
func (r *Registry) AdjustStatAndPropagate(t tag.Tag, vt ValueType, change float64, isLevelUp bool) int {
	s, ok := r.lookup(t, "AdjustStatAndPropagate")
	if !ok {
		return 0
	}
	if !r.autoPropagate {
		s.AdjustValue(vt, change, isLevelUp, false)
		return r.AdjustAffectedStats(s, change, vt)
	}
	r.propagated = 0
	s.AdjustValue(vt, change, isLevelUp, false)
	return r.propagated
}

func (r *Registry) curveFactor(curve string) float64 {
	if curve == "" || r.curves == nil {
		return 1
	}
	f, ok := r.curves.Evaluate(curve, r.level)
	if !ok {
		r.logger.Debug("curve unavailable; using factor 1", zap.String("curve", curve))
		return 1
	}
	return f
}
