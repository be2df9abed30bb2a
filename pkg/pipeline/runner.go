package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/topcrates/pkg/emit"
	"github.com/matzehuels/topcrates/pkg/manifest"
	"github.com/matzehuels/topcrates/pkg/observability"
	"github.com/matzehuels/topcrates/pkg/overrides"
	"github.com/matzehuels/topcrates/pkg/ranking"
	"github.com/matzehuels/topcrates/pkg/resolve"
)

// Runner executes the pipeline against one ranking source.
//
// The Runner holds no per-run state; a single Runner may serve several
// runs with different options.
type Runner struct {
	Source ranking.Source
	Logger *log.Logger
}

// NewRunner creates a runner. If logger is nil, the default logger is used.
func NewRunner(source ranking.Source, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Source: source, Logger: logger}
}

// Execute runs every stage and writes (or, for dry runs, renders) the
// manifest and the crate information file.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	result, err := r.Plan(ctx, opts)
	if err != nil {
		return nil, err
	}

	err = r.stage(ctx, observability.StageSynthesize, func() (int, error) {
		result.Manifest, result.Infos = manifest.Synthesize(result.Dependencies)
		return len(result.Infos), nil
	})
	if err != nil {
		return nil, err
	}

	emitStart := time.Now()
	err = r.stage(ctx, observability.StageEmit, func() (int, error) {
		if opts.DryRun {
			m, i, err := emit.Render(result.Manifest, result.Infos)
			result.ManifestData, result.InfoData = m, i
			return 0, err
		}
		files, err := emit.Emit(result.Manifest, result.Infos, opts.OutputDir)
		result.Files = files
		return len(files.Paths()), err
	})
	if err != nil {
		return nil, err
	}
	result.Stats.EmitTime = time.Since(emitStart)

	if opts.DryRun {
		r.Logger.Info("rendered outputs", "crates", result.Stats.CrateCount, "duration", result.Stats.EmitTime)
	} else {
		r.Logger.Info("wrote outputs", "dir", opts.OutputDir, "duration", result.Stats.EmitTime)
	}
	return result, nil
}

// Plan runs the load, fetch and resolve stages without producing any
// output documents.
func (r *Runner) Plan(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	result := &Result{}

	// Stage 1: Load
	start := time.Now()
	err := r.stage(ctx, observability.StageLoad, func() (int, error) {
		rules, err := loadRules(opts)
		result.Rules = rules
		return len(rules), err
	})
	if err != nil {
		return nil, err
	}
	result.Stats.RuleCount = len(result.Rules)
	result.Stats.LoadTime = time.Since(start)
	r.Logger.Debug("loaded overrides",
		"file", opts.Modifications,
		"rules", result.Stats.RuleCount,
		"crates", len(overrides.NewStore(result.Rules).Crates()))

	// Stage 2: Fetch
	start = time.Now()
	err = r.stage(ctx, observability.StageFetch, func() (int, error) {
		ranked, err := r.Source.Fetch(ctx, opts.Limit)
		result.Ranked = ranked
		return len(ranked), err
	})
	if err != nil {
		return nil, err
	}
	result.Stats.RankedCount = len(result.Ranked)
	result.Stats.FetchTime = time.Since(start)
	r.Logger.Info("fetched ranking",
		"crates", result.Stats.RankedCount,
		"limit", opts.Limit,
		"duration", result.Stats.FetchTime)

	// Stage 3: Resolve
	start = time.Now()
	err = r.stage(ctx, observability.StageResolve, func() (int, error) {
		deps, err := resolve.Resolve(result.Ranked, result.Rules)
		if err != nil {
			return 0, err
		}
		if !opts.SkipDescribe {
			if err := r.describe(ctx, deps); err != nil {
				return 0, err
			}
		}
		result.Dependencies = deps
		return len(deps), nil
	})
	if err != nil {
		return nil, err
	}
	result.Stats.CrateCount = len(result.Dependencies)
	result.Stats.ManualCount = len(resolve.ManualNames(result.Dependencies))
	result.Stats.ResolveTime = time.Since(start)
	r.Logger.Info("resolved crate set",
		"crates", result.Stats.CrateCount,
		"manual", result.Stats.ManualCount,
		"duration", result.Stats.ResolveTime)

	return result, nil
}

func loadRules(opts Options) ([]overrides.Rule, error) {
	if opts.Rules != nil {
		return opts.Rules, nil
	}
	if opts.Modifications == "" {
		return nil, nil
	}
	return overrides.Load(opts.Modifications)
}

// describe fills in metadata for force-included crates when the source can
// look crates up. Crates the source does not know keep empty metadata.
func (r *Runner) describe(ctx context.Context, deps []resolve.Dependency) error {
	d, ok := r.Source.(ranking.Describer)
	if !ok {
		return nil
	}
	for i := range deps {
		if deps[i].Origin != resolve.Manual {
			continue
		}
		pkg, found, err := d.Describe(ctx, deps[i].Name)
		if err != nil {
			return err
		}
		if !found {
			r.Logger.Warn("force-included crate not found in registry", "crate", deps[i].Name)
			continue
		}
		deps[i].Description = pkg.Description
		deps[i].Documentation = pkg.Documentation
	}
	return nil
}

// stage runs fn between the start and completion hooks and prefixes any
// error with the stage name.
func (r *Runner) stage(ctx context.Context, name string, fn func() (int, error)) error {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, name)
	start := time.Now()

	items, err := fn()
	hooks.OnStageComplete(ctx, name, items, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
