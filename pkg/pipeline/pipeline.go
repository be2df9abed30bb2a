// Package pipeline runs the complete crate set generation:
//
//  1. Load: read the override rules
//  2. Fetch: obtain the popularity ranking from a [ranking.Source]
//  3. Resolve: merge ranking and rules, then describe force-included crates
//  4. Synthesize: build the manifest and the crate information list
//  5. Emit: write both files (or render them in memory for a dry run)
//
// Each stage reports to the registered [observability.PipelineHooks] and any
// failure aborts the run before anything is written.
//
// # Usage
//
//	runner := pipeline.NewRunner(ranking.NewRegistry(client, false), logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Modifications: "crate-modifications.toml",
//	    OutputDir:     "../compiler/base",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Files.ManifestPath)
package pipeline

import (
	"time"

	"github.com/matzehuels/topcrates/pkg/emit"
	"github.com/matzehuels/topcrates/pkg/errors"
	"github.com/matzehuels/topcrates/pkg/manifest"
	"github.com/matzehuels/topcrates/pkg/overrides"
	"github.com/matzehuels/topcrates/pkg/ranking"
	"github.com/matzehuels/topcrates/pkg/resolve"
)

const (
	// DefaultLimit is the number of ranked crates requested from the source.
	DefaultLimit = 100

	// DefaultOutputDir is the playground's base crate directory, relative to
	// the top-crates checkout.
	DefaultOutputDir = "../compiler/base"
)

// Options configures a run.
type Options struct {
	// Modifications is the override rule file. Empty means no rules unless
	// Rules is set.
	Modifications string
	// Rules, when non-nil, are used instead of reading Modifications.
	Rules []overrides.Rule

	Limit     int
	OutputDir string

	// DryRun renders both documents into the Result without writing files.
	DryRun bool
	// SkipDescribe disables the metadata lookup for force-included crates.
	SkipDescribe bool

	validated bool
}

// ValidateAndSetDefaults applies defaults and checks limits. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "limit must be positive, got %d", o.Limit)
	}
	if o.OutputDir == "" {
		o.OutputDir = DefaultOutputDir
	}
	o.validated = true
	return nil
}

// Result holds everything a run produced.
type Result struct {
	Rules        []overrides.Rule
	Ranked       []ranking.Package
	Dependencies []resolve.Dependency
	Manifest     *manifest.Document
	Infos        []manifest.CrateInfo

	// Files is set when the documents were written.
	Files emit.Result
	// ManifestData and InfoData are set on dry runs.
	ManifestData []byte
	InfoData     []byte

	Stats Stats
}

// Stats contains run statistics.
type Stats struct {
	RuleCount   int
	RankedCount int
	CrateCount  int
	ManualCount int
	LoadTime    time.Duration
	FetchTime   time.Duration
	ResolveTime time.Duration
	EmitTime    time.Duration
}
