package tag_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/statengine/internal/game/tag"
)

func TestTag_Valid(t *testing.T) {
	assert.True(t, tag.Tag("Stat").Valid())
	assert.True(t, tag.Tag("Stat.Secondary.HP").Valid())
	assert.False(t, tag.Tag("").Valid())
	assert.False(t, tag.Tag("Stat..HP").Valid())
	assert.False(t, tag.Tag("Stat.").Valid())
}

func TestTag_Parent(t *testing.T) {
	p, ok := tag.Tag("Stat.Secondary.HP").Parent()
	assert.True(t, ok)
	assert.Equal(t, tag.Tag("Stat.Secondary"), p)

	_, ok = tag.Tag("Stat").Parent()
	assert.False(t, ok)
}

func TestTag_Ancestors_MostSpecificFirst(t *testing.T) {
	got := tag.Tag("StatClass.Attribute.Vigor").Ancestors()
	assert.Equal(t, []tag.Tag{"StatClass.Attribute", "StatClass"}, got)
	assert.Empty(t, tag.Tag("StatClass").Ancestors())
}

func TestTag_Lineage_IncludesSelf(t *testing.T) {
	got := tag.Tag("A.B").Lineage()
	assert.Equal(t, []tag.Tag{"A.B", "A"}, got)
}

func TestTag_Leaf(t *testing.T) {
	assert.Equal(t, "HP", tag.Tag("Stat.Secondary.HP").Leaf())
	assert.Equal(t, "Stat", tag.Tag("Stat").Leaf())
}

func TestTag_Matches(t *testing.T) {
	vigor := tag.Tag("Stat.Primary.Vigor")
	assert.True(t, vigor.Matches("Stat.Primary"))
	assert.True(t, vigor.Matches("Stat"))
	assert.True(t, vigor.Matches(vigor))
	assert.False(t, vigor.Matches("Stat.Secondary"))
	assert.False(t, tag.Tag("Stat.PrimaryBonus").Matches("Stat.Primary"))
	assert.False(t, vigor.Matches(""))
}

func TestTag_IsAncestorOf(t *testing.T) {
	assert.True(t, tag.Tag("Stat").IsAncestorOf("Stat.Primary.Vigor"))
	assert.False(t, tag.Tag("Stat.Primary").IsAncestorOf("Stat.Primary"))
	assert.False(t, tag.Tag("Stat.Primary.Vigor").IsAncestorOf("Stat.Primary"))
}

func TestSet_SliceSorted(t *testing.T) {
	s := tag.NewSet("b", "a", "c", "a")
	assert.Len(t, s, 3)
	assert.Equal(t, []tag.Tag{"a", "b", "c"}, s.Slice())
	assert.True(t, s.Has("b"))
	assert.False(t, s.Has("d"))
}

func TestPropertyTag_EveryAncestorMatches(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		segs := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z]{1,6}`), 1, 6).Draw(rt, "segments")
		tg := tag.Tag(strings.Join(segs, "."))
		for _, a := range tg.Ancestors() {
			assert.True(rt, tg.Matches(a), "%s must match ancestor %s", tg, a)
			assert.True(rt, a.IsAncestorOf(tg))
			assert.False(rt, a.Matches(tg))
		}
		assert.Len(rt, tg.Ancestors(), len(segs)-1)
	})
}
