// Package tag defines hierarchical dotted identifiers used both as unique keys
// and as category membership tests.
package tag

import (
	"sort"
	"strings"
)

// Separator splits a tag into its hierarchy segments.
const Separator = "."

// Tag is an opaque hierarchical identifier such as "Stat.Secondary.HP".
//
// Invariant: a valid Tag is non-empty and contains no empty segments.
type Tag string

// String returns the tag text.
func (t Tag) String() string { return string(t) }

// Valid reports whether t is non-empty and has no empty segments.
func (t Tag) Valid() bool {
	if t == "" {
		return false
	}
	for _, seg := range strings.Split(string(t), Separator) {
		if seg == "" {
			return false
		}
	}
	return true
}

// Leaf returns the last segment of t.
func (t Tag) Leaf() string {
	s := string(t)
	if i := strings.LastIndex(s, Separator); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Parent returns t with its last segment removed.
//
// Postcondition: Returns ("", false) when t has a single segment.
func (t Tag) Parent() (Tag, bool) {
	s := string(t)
	i := strings.LastIndex(s, Separator)
	if i < 0 {
		return "", false
	}
	return Tag(s[:i]), true
}

// Ancestors returns every proper ancestor of t, most specific first.
//
// Postcondition: t itself is not included; the result is empty for a root tag.
func (t Tag) Ancestors() []Tag {
	var out []Tag
	for p, ok := t.Parent(); ok; p, ok = p.Parent() {
		out = append(out, p)
	}
	return out
}

// Lineage returns t followed by its ancestors, most specific first.
func (t Tag) Lineage() []Tag {
	return append([]Tag{t}, t.Ancestors()...)
}

// Matches reports whether t equals category or is a descendant of it.
// Matching is segment-wise: "Stat.Primary" matches "Stat.Primary.Vigor"
// but not "Stat.PrimaryBonus".
func (t Tag) Matches(category Tag) bool {
	if category == "" {
		return false
	}
	if t == category {
		return true
	}
	return strings.HasPrefix(string(t), string(category)+Separator)
}

// IsAncestorOf reports whether t is a proper ancestor of other.
func (t Tag) IsAncestorOf(other Tag) bool {
	return t != other && other.Matches(t)
}

// Set is an unordered collection of unique tags.
type Set map[Tag]struct{}

// NewSet returns a Set holding tags.
func NewSet(tags ...Tag) Set {
	s := make(Set, len(tags))
	for _, t := range tags {
		s.Add(t)
	}
	return s
}

// Add inserts t into s.
func (s Set) Add(t Tag) { s[t] = struct{}{} }

// Has reports whether t is in s.
func (s Set) Has(t Tag) bool {
	_, ok := s[t]
	return ok
}

// Slice returns the members of s in lexical order.
func (s Set) Slice() []Tag {
	out := make([]Tag, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	Sort(out)
	return out
}

// Sort orders tags lexically in place.
func Sort(tags []Tag) {
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
}
