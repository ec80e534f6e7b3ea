// Package dice parses and rolls dice expressions such as "2d6+3" or
// "4d6kh3", used to randomise scenario damage and healing.
package dice

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// MaxDice bounds the dice rolled by one expression.
const MaxDice = 1000

var exprPattern = regexp.MustCompile(`^(\d*)d(\d+)(?:kh(\d+))?([+-]\d+)?$`)

// Expression is a parsed dice expression.
//
// Invariant: Count >= 1, Sides >= 2, 0 <= KeepHighest < Count.
type Expression struct {
	Raw         string
	Count       int
	Sides       int
	KeepHighest int // 0 keeps every die
	Modifier    int
}

// Parse parses "NdS", "dS", "NdS+M", "NdS-M" and "NdSkhK" forms,
// case-insensitively and ignoring spaces.
//
// Postcondition: Returns an Expression satisfying its invariant, or an error.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.ReplaceAll(expr, " ", ""))
	m := exprPattern.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", expr)
	}
	e := Expression{Raw: expr, Count: 1}
	if m[1] != "" {
		e.Count, _ = strconv.Atoi(m[1])
	}
	e.Sides, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		e.KeepHighest, _ = strconv.Atoi(m[3])
	}
	if m[4] != "" {
		e.Modifier, _ = strconv.Atoi(m[4])
	}
	switch {
	case e.Count < 1 || e.Count > MaxDice:
		return Expression{}, fmt.Errorf("dice: %q must roll between 1 and %d dice", expr, MaxDice)
	case e.Sides < 2:
		return Expression{}, fmt.Errorf("dice: %q needs at least two sides", expr)
	case m[3] != "" && (e.KeepHighest < 1 || e.KeepHighest >= e.Count):
		return Expression{}, fmt.Errorf("dice: %q keeps %d of %d dice", expr, e.KeepHighest, e.Count)
	}
	return e, nil
}

// MustParse is Parse for expressions known to be valid; it panics otherwise.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return e
}

// Min returns the smallest total the expression can produce.
func (e Expression) Min() int {
	return e.kept() + e.Modifier
}

// Max returns the largest total the expression can produce.
func (e Expression) Max() int {
	return e.kept()*e.Sides + e.Modifier
}

func (e Expression) kept() int {
	if e.KeepHighest > 0 {
		return e.KeepHighest
	}
	return e.Count
}

// Result is one evaluated roll.
//
// Invariant: Total() == sum(Dice) + Modifier.
type Result struct {
	Expression string
	Dice       []int // kept dice, highest first when KeepHighest was used
	Modifier   int
}

// Total returns the sum of the kept dice plus the modifier.
func (r Result) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll as "2d6+3: [4 5] +3 = 12".
func (r Result) String() string {
	return fmt.Sprintf("%s: %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}

// Roll evaluates e with src.
//
// Precondition: src must be non-nil.
// Postcondition: e.Min() <= Total() <= e.Max().
func Roll(e Expression, src Source) Result {
	rolled := make([]int, e.Count)
	for i := range rolled {
		rolled[i] = src.Intn(e.Sides) + 1
	}
	if e.KeepHighest > 0 {
		slices.Sort(rolled)
		slices.Reverse(rolled)
		rolled = rolled[:e.KeepHighest]
	}
	return Result{Expression: e.Raw, Dice: rolled, Modifier: e.Modifier}
}
