package sim

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/cory-johannsen/statengine/internal/game/character"
	"github.com/cory-johannsen/statengine/internal/game/stat"
)

// WriteSheet renders c's stats as an aligned table in tag order, honouring
// each stat's presentation flags.
func WriteSheet(w io.Writer, c *character.Character) error {
	class := c.ClassID
	if class == "" {
		class = "unclassed"
	}
	if _, err := fmt.Fprintf(w, "%s (%s) level %d\n", c.Name, class, c.Level()); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAT\tVALUE\tREGEN")
	all, _ := c.Stats.GetAllStats()
	for _, s := range all {
		name := s.DisplayName()
		if name == "" {
			name = s.Tag().Leaf()
		}
		regen := "-"
		if s.Regen().CanRegenerate {
			regen = s.RegenState().String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, FormatValue(s), regen)
	}
	return tw.Flush()
}

// FormatValue renders one stat the way a character sheet shows it.
func FormatValue(s *stat.Stat) string {
	info := s.Info()
	switch {
	case info.OnlyMaxValueRelevant:
		return formatNumber(info.Max)
	case info.DisplayAsPercent:
		return formatNumber(s.CalculatePercent()) + "%"
	case info.ShowMaxValue:
		return formatNumber(info.Current) + " / " + formatNumber(info.Max)
	default:
		return formatNumber(info.Current)
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
