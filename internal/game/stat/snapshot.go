package stat

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/statengine/internal/game/tag"
)

// Snapshot is the persisted state of one stat. Only magnitudes and
// presentation fields are stored; affect-rules and class paths come from
// definitions on load.
type Snapshot struct {
	Tag                  tag.Tag   `yaml:"tag" json:"tag"`
	DisplayName          string    `yaml:"display_name" json:"display_name"`
	Description          string    `yaml:"description" json:"description"`
	Current              float64   `yaml:"current" json:"current"`
	Max                  float64   `yaml:"max" json:"max"`
	Min                  float64   `yaml:"min" json:"min"`
	OnlyMaxValueRelevant bool      `yaml:"only_max_value_relevant" json:"only_max_value_relevant"`
	DisplayAsPercent     bool      `yaml:"display_as_percent" json:"display_as_percent"`
	ShowMaxValue         bool      `yaml:"show_max_value" json:"show_max_value"`
	Regen                RegenInfo `yaml:"regen" json:"regen"`
}

// Serialize returns one snapshot per active stat, in tag order.
func (r *Registry) Serialize() []Snapshot {
	tags := r.sortedTags()
	out := make([]Snapshot, 0, len(tags))
	for _, t := range tags {
		out = append(out, r.stats[t].Info())
	}
	return out
}

// Deserialize overwrites the value state of every active stat named in
// snaps. Entries for unknown tags or carrying non-finite values are
// skipped. Running regeneration is
// stopped on restored stats; callers restart it explicitly. Each restored
// stat publishes a zero-delta Update.
//
// Postcondition: Returns the number of entries applied; the clamp invariant
// holds on every restored stat.
func (r *Registry) Deserialize(snaps []Snapshot) int {
	applied := 0
	for _, snap := range snaps {
		s, ok := r.stats[snap.Tag]
		if !ok {
			r.logger.Debug("snapshot entry skipped: unknown tag", zap.String("tag", string(snap.Tag)))
			continue
		}
		if !snap.finite() {
			r.logger.Warn("snapshot entry skipped: non-finite value",
				zap.String("tag", string(snap.Tag)),
				zap.Float64("current", snap.Current),
				zap.Float64("max", snap.Max),
				zap.Float64("min", snap.Min),
			)
			continue
		}
		s.stopRegen()
		s.restore(snap)
		s.publish(Update{Stat: s, Change: 0, Cascade: false, ValueType: Current})
		applied++
	}
	return applied
}

func (snap Snapshot) finite() bool {
	for _, v := range []float64{snap.Current, snap.Max, snap.Min, snap.Regen.FractionOfMaxPerTick} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s *Stat) restore(snap Snapshot) {
	s.displayName = snap.DisplayName
	s.description = snap.Description
	s.onlyMaxValueRelevant = snap.OnlyMaxValueRelevant
	s.displayAsPercent = snap.DisplayAsPercent
	s.showMaxValue = snap.ShowMaxValue
	s.regen = snap.Regen
	s.min = snap.Min
	s.max = snap.Max
	if s.max < s.min {
		s.max = s.min
	}
	s.current = clamp(snap.Current, s.min, s.max)
	if s.onlyMaxValueRelevant {
		s.current = s.max
	}
}

// MarshalSnapshots encodes snaps as a YAML document.
func MarshalSnapshots(snaps []Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(snaps); err != nil {
		return nil, fmt.Errorf("encoding snapshots: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding snapshots: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalSnapshots decodes a YAML document produced by MarshalSnapshots.
func UnmarshalSnapshots(data []byte) ([]Snapshot, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var snaps []Snapshot
	if err := dec.Decode(&snaps); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding snapshots: %w", err)
	}
	return snaps, nil
}
