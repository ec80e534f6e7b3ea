package ruleset_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/statengine/internal/game/ruleset"
	"github.com/cory-johannsen/statengine/internal/game/stat"
	"github.com/cory-johannsen/statengine/internal/game/tag"
)

var (
	_ stat.ClassSource           = (*ruleset.ClassRegistry)(nil)
	_ stat.SelectedClassProvider = ruleset.StaticSelection("")
)

func TestClassRegistry_BaseValuesFor_KnownClass(t *testing.T) {
	reg := ruleset.NewClassRegistry()
	reg.Register(&ruleset.Class{ID: "knight", BaseValues: map[string]float64{"StatClass.Pool.HP": 420}})
	values, ok := reg.BaseValuesFor("knight")
	require.True(t, ok)
	assert.Equal(t, map[tag.Tag]float64{"StatClass.Pool.HP": 420}, values)
}

func TestClassRegistry_BaseValuesFor_UnknownClass(t *testing.T) {
	reg := ruleset.NewClassRegistry()
	values, ok := reg.BaseValuesFor("nonexistent")
	assert.False(t, ok)
	assert.Nil(t, values)
}

func TestClassRegistry_Register_LastWins(t *testing.T) {
	reg := ruleset.NewClassRegistry()
	reg.Register(&ruleset.Class{ID: "knight", Name: "Old"})
	reg.Register(&ruleset.Class{ID: "knight", Name: "New"})
	c, ok := reg.Class("knight")
	require.True(t, ok)
	assert.Equal(t, "New", c.Name)
	assert.Equal(t, []string{"knight"}, reg.IDs())
}

func TestClassRegistry_Register_NilClassPanics(t *testing.T) {
	reg := ruleset.NewClassRegistry()
	assert.Panics(t, func() { reg.Register(nil) })
}

func TestClassRegistry_Register_EmptyIDPanics(t *testing.T) {
	reg := ruleset.NewClassRegistry()
	assert.Panics(t, func() { reg.Register(&ruleset.Class{}) })
}

func TestLoadClassRegistry_FromContent(t *testing.T) {
	reg, err := ruleset.LoadClassRegistry("../../../content/classes")
	require.NoError(t, err)
	assert.Contains(t, reg.IDs(), "knight")
	for _, id := range reg.IDs() {
		c, ok := reg.Class(id)
		require.True(t, ok)
		assert.NoError(t, c.Validate())
	}
}

func TestLoadClassRegistry_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "id: knight\n")
	writeFile(t, filepath.Join(dir, "b.yaml"), "id: knight\n")
	_, err := ruleset.LoadClassRegistry(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than once")
}

func TestStaticSelection(t *testing.T) {
	id, ok := ruleset.StaticSelection("knight").SelectedClass()
	assert.True(t, ok)
	assert.Equal(t, "knight", id)
	_, ok = ruleset.StaticSelection("").SelectedClass()
	assert.False(t, ok)
}

// The class registry drives the stat registry's base initialisation.
func TestClassRegistry_FeedsBaseInitialization(t *testing.T) {
	reg := ruleset.NewClassRegistry()
	reg.Register(&ruleset.Class{ID: "knight", BaseValues: map[string]float64{
		"StatClass.Attribute": 12,
	}})
	stats := stat.NewRegistry(nil,
		stat.WithClassSource(reg, ""),
		stat.WithSelectedClass(ruleset.StaticSelection("knight")),
	)
	stats.Register(stat.Definition{Tag: "Stat.Primary.Vigor", Class: "StatClass.Attribute.Vigor", Max: 10})
	res := stats.InitializeBaseStats()
	require.False(t, res.Aborted)
	s, _, _ := stats.GetStat("Stat.Primary.Vigor")
	assert.Equal(t, 12.0, s.Max())
}

func TestPropertyClassRegistry_EveryRegisteredIDResolves(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(rt, "n")
		reg := ruleset.NewClassRegistry()
		want := map[string]float64{}
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("class_%d", rapid.IntRange(0, 10).Draw(rt, "id"))
			v := rapid.Float64Range(0, 1000).Draw(rt, "value")
			reg.Register(&ruleset.Class{ID: id, BaseValues: map[string]float64{"StatClass.X": v}})
			want[id] = v
		}
		assert.Len(rt, reg.IDs(), len(want))
		for id, v := range want {
			values, ok := reg.BaseValuesFor(id)
			require.True(rt, ok)
			assert.Equal(rt, v, values["StatClass.X"])
		}
	})
}
