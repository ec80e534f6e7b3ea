package stat_test

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/statengine/internal/game/stat"
	"github.com/cory-johannsen/statengine/internal/game/tag"
	"github.com/cory-johannsen/statengine/internal/game/tick"
)

const (
	hpTag      tag.Tag = "Stat.Secondary.HP"
	staminaTag tag.Tag = "Stat.Secondary.Stamina"
	vigorTag   tag.Tag = "Stat.Primary.Vigor"
	enduTag    tag.Tag = "Stat.Primary.Endurance"
	attackTag  tag.Tag = "Stat.AttackPower.Physical"
)

func ptr(v float64) *float64 { return &v }

func hpDef() stat.Definition {
	return stat.Definition{
		Tag:          hpTag,
		Class:        "StatClass.Pool.HP",
		DisplayName:  "HP",
		Max:          100,
		ShowMaxValue: true,
		Regen: stat.RegenInfo{
			CanRegenerate:        true,
			Interval:             time.Second,
			FractionOfMaxPerTick: 0.1,
		},
	}
}

func staminaDef() stat.Definition {
	return stat.Definition{Tag: staminaTag, Class: "StatClass.Pool.Stamina", Max: 50}
}

func vigorDef() stat.Definition {
	return stat.Definition{
		Tag:   vigorTag,
		Class: "StatClass.Attribute.Vigor",
		Max:   10,
		Affects: []stat.Affect{
			{Tag: hpTag, Rules: []stat.AffectRule{{AffectsMaxValue: true, Modifier: 8}}},
		},
	}
}

func enduranceDef() stat.Definition {
	return stat.Definition{
		Tag:   enduTag,
		Class: "StatClass.Attribute.Endurance",
		Max:   10,
		Affects: []stat.Affect{
			{Tag: staminaTag, Rules: []stat.AffectRule{{AffectsMaxValue: true, Modifier: 2}}},
		},
	}
}

func attackDef() stat.Definition {
	return stat.Definition{
		Tag:                  attackTag,
		Class:                "StatClass.Offense.Physical",
		Max:                  40,
		OnlyMaxValueRelevant: true,
	}
}

// recorder captures every notification it receives.
type recorder struct {
	updates  []stat.Update
	levelUps []stat.LevelUp
}

func (r *recorder) StatUpdated(u stat.Update)    { r.updates = append(r.updates, u) }
func (r *recorder) StatLeveledUp(l stat.LevelUp) { r.levelUps = append(r.levelUps, l) }

// classTable is an in-memory stat.ClassSource.
type classTable map[string]map[tag.Tag]float64

func (c classTable) BaseValuesFor(id string) (map[tag.Tag]float64, bool) {
	v, ok := c[id]
	return v, ok
}

type selection string

func (s selection) SelectedClass() (string, bool) { return string(s), s != "" }

// curveTable is an in-memory stat.CurveEvaluator returning a fixed factor per curve.
type curveTable map[string]float64

func (c curveTable) Evaluate(name string, level int) (float64, bool) {
	f, ok := c[name]
	return f * float64(level), ok
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// helper is satisfied by both *testing.T and *rapid.T.
type helper interface {
	Helper()
	Fatalf(format string, args ...any)
}

func newRegistry(t helper, opts ...stat.Option) (*stat.Registry, *tick.Scheduler) {
	t.Helper()
	sched := tick.NewScheduler()
	opts = append([]stat.Option{stat.WithScheduler(sched)}, opts...)
	r := stat.NewRegistry(zap.NewNop(), opts...)
	r.Populate([]stat.Definition{hpDef(), staminaDef(), vigorDef(), enduranceDef(), attackDef()})
	return r, sched
}

func mustStat(t helper, r *stat.Registry, tg tag.Tag) *stat.Stat {
	t.Helper()
	s, _, ok := r.GetStat(tg)
	if !ok {
		t.Fatalf("stat %s not registered", tg)
	}
	return s
}
