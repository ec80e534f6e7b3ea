// Package sim drives a character through a timed scenario on the tick
// scheduler and renders the resulting stat sheet.
package sim

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/statengine/internal/game/dice"
	"github.com/cory-johannsen/statengine/internal/game/tag"
)

// Action names a scenario step.
type Action string

const (
	ActionDamage    Action = "damage"
	ActionHeal      Action = "heal"
	ActionRest      Action = "rest"
	ActionLevelUp   Action = "level_up"
	ActionReset     Action = "reset"
	ActionStopRegen Action = "stop_regen"
)

// needsStat reports whether a step with this action must name a stat.
func (a Action) needsStat() bool {
	switch a {
	case ActionDamage, ActionHeal, ActionLevelUp, ActionReset, ActionStopRegen:
		return true
	}
	return false
}

func (a Action) known() bool {
	return a == ActionRest || a.needsStat()
}

// Step is one action fired At scenario time. Damage and heal take either a
// fixed Amount or a dice Roll evaluated when the step fires.
type Step struct {
	At     time.Duration `yaml:"at"`
	Action Action        `yaml:"action"`
	Stat   tag.Tag       `yaml:"stat,omitempty"`
	Amount float64       `yaml:"amount,omitempty"`
	Roll   string        `yaml:"roll,omitempty"`
}

// Scenario is a named list of timed steps run for Duration. A non-zero Seed
// makes dice rolls reproducible.
type Scenario struct {
	Name     string        `yaml:"name"`
	Duration time.Duration `yaml:"duration"`
	Seed     uint64        `yaml:"seed,omitempty"`
	Steps    []Step        `yaml:"steps"`
}

// Validate reports every problem with the scenario.
//
// Postcondition: Returns nil if sc can be run, or an error describing all violations.
func (sc *Scenario) Validate() error {
	var errs []error
	if sc.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be > 0, got %s", sc.Duration))
	}
	for i, st := range sc.Steps {
		if !st.Action.known() {
			errs = append(errs, fmt.Errorf("step %d: unknown action %q", i, st.Action))
			continue
		}
		if st.At < 0 || st.At > sc.Duration {
			errs = append(errs, fmt.Errorf("step %d: at %s outside [0, %s]", i, st.At, sc.Duration))
		}
		if st.Action.needsStat() && !st.Stat.Valid() {
			errs = append(errs, fmt.Errorf("step %d: %s requires a valid stat tag", i, st.Action))
		}
		if st.Action != ActionDamage && st.Action != ActionHeal {
			continue
		}
		switch {
		case st.Roll != "" && st.Amount != 0:
			errs = append(errs, fmt.Errorf("step %d: %s sets both amount and roll", i, st.Action))
		case st.Roll != "":
			if _, err := dice.Parse(st.Roll); err != nil {
				errs = append(errs, fmt.Errorf("step %d: %w", i, err))
			}
		case st.Amount <= 0:
			errs = append(errs, fmt.Errorf("step %d: %s amount must be > 0", i, st.Action))
		}
	}
	return errors.Join(errs...)
}

// DecodeScenario reads one YAML scenario from r, rejecting unknown fields.
//
// Postcondition: Returns a validated scenario or a non-nil error.
func DecodeScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %q: %w", sc.Name, err)
	}
	return &sc, nil
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scenario: %w", err)
	}
	defer f.Close()
	sc, err := DecodeScenario(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Skirmish returns the built-in scenario: a hit on each pool, a rest, a
// level-up spent on the first primary stat, and time to recover.
func Skirmish(primary, hp, stamina tag.Tag) *Scenario {
	return &Scenario{
		Name:     "skirmish",
		Duration: 30 * time.Second,
		Steps: []Step{
			{At: time.Second, Action: ActionDamage, Stat: hp, Roll: "10d20+15"},
			{At: time.Second, Action: ActionDamage, Stat: stamina, Amount: 40},
			{At: 2 * time.Second, Action: ActionRest},
			{At: 5 * time.Second, Action: ActionDamage, Stat: hp, Amount: 60},
			{At: 6 * time.Second, Action: ActionLevelUp, Stat: primary},
			{At: 7 * time.Second, Action: ActionRest},
		},
	}
}
