package character

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/statengine/internal/game/stat"
	"github.com/cory-johannsen/statengine/internal/game/tag"
)

// Params describes a character to build.
type Params struct {
	Name string
	// ClassID selects the class explicitly. When empty, Selection is consulted.
	ClassID     string
	Definitions []stat.Definition
	Classes     stat.ClassSource
	Selection   stat.SelectedClassProvider
	Overrides   map[tag.Tag]stat.Override

	Curves        stat.CurveEvaluator
	Scheduler     stat.Scheduler
	PoolCategory  tag.Tag
	AutoPropagate bool
	Observers     []stat.Observer
	Logger        *zap.Logger
}

// Validate reports every problem with p.
//
// Postcondition: Returns nil if p can be built, or an error describing all violations.
func (p Params) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("character name must not be empty"))
	}
	if len(p.Definitions) == 0 {
		errs = append(errs, errors.New("at least one stat definition is required"))
	}
	seen := make(map[tag.Tag]bool, len(p.Definitions))
	for _, d := range p.Definitions {
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
		}
		if seen[d.Tag] {
			errs = append(errs, fmt.Errorf("stat %q defined more than once", d.Tag))
		}
		seen[d.Tag] = true
	}
	for t := range p.Overrides {
		if !seen[t] {
			errs = append(errs, fmt.Errorf("override for undefined stat %q", t))
		}
	}
	return errors.Join(errs...)
}

// Build constructs a new Character: a registry is populated from the
// definitions, overrides are staged, and base stat initialisation runs once.
// A missing class source or an unresolvable class is not an error; the
// character keeps definition defaults and Init.Aborted is set.
//
// Precondition: p must pass Validate.
// Postcondition: Returns a Character with a fresh UUID, or a non-nil error.
func Build(p Params) (*Character, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("building character: %w", err)
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	logger = logger.With(zap.String("character_id", id), zap.String("character", p.Name))

	opts := []stat.Option{
		stat.WithScheduler(p.Scheduler),
		stat.WithClassSource(p.Classes, p.ClassID),
		stat.WithCurves(p.Curves),
		stat.WithAutoPropagate(p.AutoPropagate),
	}
	if p.Selection != nil {
		opts = append(opts, stat.WithSelectedClass(p.Selection))
	}
	if p.PoolCategory != "" {
		opts = append(opts, stat.WithPoolCategory(p.PoolCategory))
	}
	for _, o := range p.Observers {
		opts = append(opts, stat.WithObserver(o))
	}

	stats := stat.NewRegistry(logger, opts...)
	stats.Populate(p.Definitions)
	if len(p.Overrides) > 0 {
		stats.SetOverrides(p.Overrides)
	}
	res := stats.InitializeBaseStats()

	c := &Character{
		ID:        id,
		Name:      p.Name,
		Stats:     stats,
		Init:      res,
		CreatedAt: time.Now().UTC(),
	}
	if !res.Aborted {
		c.ClassID = res.ClassID
	}
	logger.Info("character built",
		zap.String("class", c.ClassID),
		zap.Int("stats", stats.Len()),
		zap.Bool("base_init_skipped", res.Aborted),
	)
	return c, nil
}
