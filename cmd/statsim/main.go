// Package main provides statsim, which builds a character from designer
// content, drives it through a timed scenario on the tick loop, and prints
// the resulting stat sheet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/statengine/internal/config"
	"github.com/cory-johannsen/statengine/internal/game/character"
	"github.com/cory-johannsen/statengine/internal/game/ruleset"
	"github.com/cory-johannsen/statengine/internal/game/stat"
	"github.com/cory-johannsen/statengine/internal/game/tag"
	"github.com/cory-johannsen/statengine/internal/game/tick"
	"github.com/cory-johannsen/statengine/internal/observability"
	"github.com/cory-johannsen/statengine/internal/scripting"
	"github.com/cory-johannsen/statengine/internal/server"
	"github.com/cory-johannsen/statengine/internal/sim"
	"github.com/cory-johannsen/statengine/internal/storage/postgres"
)

const (
	defaultPrimary tag.Tag = "Stat.Primary.Vigor"
	defaultHP      tag.Tag = "Stat.Secondary.HP"
	defaultStamina tag.Tag = "Stat.Secondary.Stamina"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "statsim: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath   string
	name         string
	class        string
	scenarioPath string
	realtime     bool
	trace        bool
	saveFile     string
	loadFile     string
	loadID       string
	seed         uint64
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("statsim", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "path to configuration file (empty uses defaults and STATS_ environment)")
	fs.StringVar(&o.name, "name", "Wanderer", "character name")
	fs.StringVar(&o.class, "class", "", "class ID (overrides content.selected_class)")
	fs.StringVar(&o.scenarioPath, "scenario", "", "scenario YAML file (empty runs the built-in skirmish)")
	fs.BoolVar(&o.realtime, "realtime", false, "run the scenario against the wall clock instead of virtual time")
	fs.BoolVar(&o.trace, "trace", false, "log every stat update at debug level")
	fs.StringVar(&o.saveFile, "save", "", "write the final character to this YAML file")
	fs.StringVar(&o.loadFile, "load", "", "restore the character from this YAML file before the scenario")
	fs.StringVar(&o.loadID, "load-id", "", "restore the character with this ID from the database")
	fs.Uint64Var(&o.seed, "seed", 0, "dice seed for reproducible runs (0 keeps the scenario's seed)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.loadFile != "" && o.loadID != "" {
		return options{}, errors.New("-load and -load-id are mutually exclusive")
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	start := time.Now()
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	defs, err := stat.LoadDefinitions(cfg.Content.StatsDir)
	if err != nil {
		return fmt.Errorf("loading stat definitions: %w", err)
	}
	classes, err := ruleset.LoadClassRegistry(cfg.Content.ClassesDir)
	if err != nil {
		return fmt.Errorf("loading classes: %w", err)
	}
	var curves stat.CurveEvaluator
	if cfg.Content.CurvesDir != "" {
		cm := scripting.NewCurveManager(cfg.Engine.CurveInstructionLimit, logger)
		defer cm.Close()
		n, err := cm.LoadDir(cfg.Content.CurvesDir)
		if err != nil {
			return fmt.Errorf("loading curves: %w", err)
		}
		logger.Info("curves loaded", zap.Int("count", n))
		curves = cm
	}
	logger.Info("content loaded",
		zap.Int("stats", len(defs)),
		zap.Strings("classes", classes.IDs()),
	)

	var (
		store *postgres.SnapshotRepository
		saved *sim.SaveFile
		rec   postgres.CharacterRecord
	)
	if cfg.Database.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()
		store = postgres.NewSnapshotRepository(pool.DB())
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Name),
		)
	}
	switch {
	case opts.loadFile != "":
		f, err := sim.ReadSaveFile(opts.loadFile)
		if err != nil {
			return err
		}
		saved = &f
	case opts.loadID != "":
		if store == nil {
			return errors.New("-load-id requires database.enabled")
		}
		if rec, err = store.GetCharacter(ctx, opts.loadID); err != nil {
			return fmt.Errorf("loading character %s: %w", opts.loadID, err)
		}
		snaps, err := store.Load(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("loading stats for %s: %w", rec.ID, err)
		}
		saved = &sim.SaveFile{Character: rec.Name, Class: rec.ClassID, Level: rec.Level, Stats: snaps}
	}

	loop := tick.NewLoop(cfg.Engine.TickResolution, logger)
	params := character.Params{
		Name:          opts.name,
		ClassID:       opts.class,
		Definitions:   defs,
		Classes:       classes,
		Selection:     ruleset.StaticSelection(cfg.Content.SelectedClass),
		Curves:        curves,
		Scheduler:     loop.Scheduler(),
		PoolCategory:  tag.Tag(cfg.Engine.PoolCategory),
		AutoPropagate: cfg.Engine.AutoPropagate,
		Logger:        logger,
	}
	if opts.trace {
		params.Observers = append(params.Observers, observability.NewStatEventLogger(logger))
	}
	if saved != nil {
		params.Name = saved.Character
		params.ClassID = saved.Class
	}
	c, err := character.Build(params)
	if err != nil {
		return err
	}
	defer c.Close()
	if saved != nil {
		if rec.ID != "" {
			c.ID = rec.ID
		}
		n := saved.Apply(c)
		logger.Info("character restored", zap.String("character_id", c.ID), zap.Int("stats", n))
	}

	sc := sim.Skirmish(defaultPrimary, defaultHP, defaultStamina)
	if opts.scenarioPath != "" {
		if sc, err = sim.LoadScenario(opts.scenarioPath); err != nil {
			return err
		}
	}
	if opts.seed != 0 {
		sc.Seed = opts.seed
	}
	runner := sim.NewRunner(c, loop.Scheduler(), logger)
	if opts.realtime {
		if err := runRealtime(ctx, logger, loop, runner, sc); err != nil {
			return err
		}
	} else {
		sim.Simulate(loop, runner, sc, cfg.Engine.TickResolution)
	}

	writeEvents(stdout, runner.Events())
	if err := sim.WriteSheet(stdout, c); err != nil {
		return fmt.Errorf("writing stat sheet: %w", err)
	}

	if opts.saveFile != "" {
		if err := sim.WriteSaveFile(opts.saveFile, sim.NewSaveFile(c)); err != nil {
			return err
		}
		logger.Info("character saved", zap.String("path", opts.saveFile))
	}
	if store != nil {
		if err := persist(ctx, store, c); err != nil {
			return err
		}
	}
	logger.Info("simulation complete",
		zap.String("scenario", sc.Name),
		zap.Duration("simulated", loop.Scheduler().Now()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// runRealtime drives the loop from the wall clock until the scenario's
// duration has passed or ctx ends.
func runRealtime(ctx context.Context, logger *zap.Logger, loop *tick.Loop, runner *sim.Runner, sc *sim.Scenario) error {
	loop.Submit(func() { runner.Schedule(sc) })

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	finished := make(chan struct{})

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("tick-loop", &server.FuncService{
		StartFn: func() error {
			if err := loop.Run(loopCtx); loopCtx.Err() == nil {
				return err
			}
			return nil
		},
		StopFn: stopLoop,
	})
	lifecycle.Add("scenario", &server.FuncService{
		StartFn: func() error {
			select {
			case <-time.After(sc.Duration):
			case <-finished:
			}
			return nil
		},
		StopFn: func() { close(finished) },
	})
	if err := lifecycle.Run(ctx); err != nil {
		return fmt.Errorf("realtime run: %w", err)
	}
	return nil
}

func persist(ctx context.Context, store *postgres.SnapshotRepository, c *character.Character) error {
	if _, err := store.SaveCharacter(ctx, postgres.CharacterRecord{
		ID:      c.ID,
		Name:    c.Name,
		ClassID: c.ClassID,
		Level:   c.Level(),
	}); err != nil {
		return fmt.Errorf("saving character: %w", err)
	}
	if err := store.Save(ctx, c.ID, c.Snapshot()); err != nil {
		return fmt.Errorf("saving stats: %w", err)
	}
	return nil
}

func writeEvents(w io.Writer, events []sim.Event) {
	for _, ev := range events {
		line := fmt.Sprintf("%8s  %s", ev.At, ev.Step.Action)
		if ev.Step.Stat != "" {
			line += " " + string(ev.Step.Stat)
		}
		if ev.Roll != "" {
			line += " " + ev.Roll
		} else if ev.Amount != 0 {
			line += fmt.Sprintf(" %g", ev.Amount)
		}
		if !ev.Applied {
			line += " (skipped: unknown stat)"
		}
		fmt.Fprintln(w, line)
	}
	if len(events) > 0 {
		fmt.Fprintln(w)
	}
}
