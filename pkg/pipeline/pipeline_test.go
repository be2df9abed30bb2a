package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/topcrates/pkg/emit"
	"github.com/matzehuels/topcrates/pkg/errors"
	"github.com/matzehuels/topcrates/pkg/observability"
	"github.com/matzehuels/topcrates/pkg/overrides"
	"github.com/matzehuels/topcrates/pkg/ranking"
	"github.com/matzehuels/topcrates/pkg/resolve"
)

var source = ranking.Static{
	{Name: "serde", Version: "1.0.195", Downloads: 500, Documentation: "https://docs.rs/serde"},
	{Name: "rand", Version: "0.8.5", Downloads: 400},
	{Name: "syn", Version: "2.0.48", Downloads: 300},
	{Name: "regex", Version: "1.10.3", Downloads: 1, Description: "Regular expressions"},
}

const rulesFile = `
[crates.rand]
exclude = true

[crates.regex]
include = "1.0"

[crates.serde]
features = ["derive"]
`

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), overrides.DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("empty options should pass: %v", err)
	}
	if opts.Limit != DefaultLimit {
		t.Errorf("Limit should be %d, got %d", DefaultLimit, opts.Limit)
	}
	if opts.OutputDir != DefaultOutputDir {
		t.Errorf("OutputDir should be %q, got %q", DefaultOutputDir, opts.OutputDir)
	}
}

func TestOptionsValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := Options{Limit: 5}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("First validation failed: %v", err)
	}
	opts.OutputDir = "custom"
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Second validation failed: %v", err)
	}
	if opts.Limit != 5 || opts.OutputDir != "custom" {
		t.Errorf("second call changed options: %+v", opts)
	}
}

func TestOptionsNegativeLimit(t *testing.T) {
	opts := Options{Limit: -1}
	err := opts.ValidateAndSetDefaults()
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("negative limit error = %v, want INVALID_INPUT", err)
	}
}

func TestExecute(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "base")
	runner := NewRunner(source, nil)

	result, err := runner.Execute(context.Background(), Options{
		Modifications: writeRules(t, rulesFile),
		OutputDir:     dir,
		Limit:         3,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Stats.RuleCount)
	assert.Equal(t, 3, result.Stats.RankedCount)
	assert.Equal(t, 3, result.Stats.CrateCount)
	assert.Equal(t, 1, result.Stats.ManualCount)

	names := make([]string, len(result.Dependencies))
	for i, d := range result.Dependencies {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"regex", "serde", "syn"}, names)

	regex := result.Dependencies[0]
	assert.Equal(t, "1.0", regex.Version)
	assert.Equal(t, resolve.Manual, regex.Origin)
	assert.Equal(t, "Regular expressions", regex.Description, "manual crate described by the source")

	assert.Equal(t, filepath.Join(dir, emit.ManifestFile), result.Files.ManifestPath)
	data, err := os.ReadFile(result.Files.ManifestPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), emit.Disclaimer))
	assert.FileExists(t, result.Files.InfoPath)
	assert.Nil(t, result.ManifestData)
}

func TestExecuteDryRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "base")
	runner := NewRunner(source, nil)

	result, err := runner.Execute(context.Background(), Options{
		Rules:     []overrides.Rule{{Crate: "syn", Action: overrides.AddFeature, Features: []string{"full"}}},
		OutputDir: dir,
		DryRun:    true,
	})
	require.NoError(t, err)

	assert.Contains(t, string(result.ManifestData), `features = ["full"]`)
	assert.Contains(t, string(result.InfoData), `"id": "syn"`)
	assert.NoDirExists(t, dir)
	assert.Empty(t, result.Files.ManifestPath)
}

func TestExecuteDeterministic(t *testing.T) {
	runner := NewRunner(source, nil)
	opts := Options{Modifications: writeRules(t, rulesFile), DryRun: true}

	first, err := runner.Execute(context.Background(), opts)
	require.NoError(t, err)
	second, err := runner.Execute(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, first.ManifestData, second.ManifestData)
	assert.Equal(t, first.InfoData, second.InfoData)
}

func TestExecuteSnapshotReplay(t *testing.T) {
	ctx := context.Background()
	opts := Options{Modifications: writeRules(t, rulesFile), Limit: 3, DryRun: true}

	live, err := NewRunner(source, nil).Execute(ctx, opts)
	require.NoError(t, err)
	require.Contains(t, string(live.InfoData), `"description": "Regular expressions"`)

	store := overrides.NewStore(live.Rules)
	var names []string
	for _, r := range store.Rules(overrides.ForceInclude) {
		names = append(names, r.Crate)
	}
	described, err := ranking.DescribeAll(ctx, source, names)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ranking.json")
	require.NoError(t, ranking.WriteSnapshot(path, "static", live.Ranked, described))

	replay, err := NewRunner(ranking.Snapshot{Path: path}, nil).Execute(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, string(live.ManifestData), string(replay.ManifestData))
	assert.Equal(t, string(live.InfoData), string(replay.InfoData))
}

func TestExecuteNoRules(t *testing.T) {
	result, err := NewRunner(source, nil).Execute(context.Background(), Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.RuleCount)
	assert.Equal(t, 4, result.Stats.CrateCount)
}

func TestExecuteSkipDescribe(t *testing.T) {
	result, err := NewRunner(source, nil).Plan(context.Background(), Options{
		Rules:        []overrides.Rule{{Crate: "regex", Action: overrides.ForceInclude, Version: "1"}},
		Limit:        1,
		SkipDescribe: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Dependencies, 2)
	assert.Empty(t, result.Dependencies[0].Description)
}

type failingSource struct{ err error }

func (s failingSource) Fetch(context.Context, int) ([]ranking.Package, error) { return nil, s.err }

func TestExecuteErrors(t *testing.T) {
	sourceDown := errors.New(errors.ErrCodeSourceUnavailable, "registry down")

	tests := []struct {
		name   string
		source ranking.Source
		opts   Options
		code   errors.Code
		prefix string
	}{
		{
			name:   "missing rule file",
			source: source,
			opts:   Options{Modifications: filepath.Join(t.TempDir(), "missing.toml")},
			code:   errors.ErrCodeIO,
			prefix: "load: ",
		},
		{
			name:   "conflicting rules",
			source: source,
			opts:   Options{Modifications: writeRules(t, "[crates.rand]\nexclude = true\nversion = \"1\"\n")},
			code:   errors.ErrCodeConfigConflict,
			prefix: "load: ",
		},
		{
			name:   "source unavailable",
			source: failingSource{err: sourceDown},
			code:   errors.ErrCodeSourceUnavailable,
			prefix: "fetch: ",
		},
		{
			name:   "unknown target",
			source: source,
			opts:   Options{Rules: []overrides.Rule{{Crate: "tokio", Action: overrides.PinVersion, Version: "1"}}},
			code:   errors.ErrCodeUnknownPackage,
			prefix: "resolve: ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			tt.opts.OutputDir = dir

			_, err := NewRunner(tt.source, nil).Execute(context.Background(), tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "error: %v", err)
			assert.True(t, strings.HasPrefix(err.Error(), tt.prefix), "error: %v", err)
			assert.NoDirExists(t, dir, "nothing is written on failure")
		})
	}
}

type describeFailure struct {
	ranking.Static
}

func (describeFailure) Describe(context.Context, string) (ranking.Package, bool, error) {
	return ranking.Package{}, false, errors.New(errors.ErrCodeSourceUnavailable, "lookup failed")
}

func TestExecuteDescribeFailure(t *testing.T) {
	_, err := NewRunner(describeFailure{source}, nil).Execute(context.Background(), Options{
		Rules:  []overrides.Rule{{Crate: "tokio", Action: overrides.ForceInclude, Version: "1"}},
		DryRun: true,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeSourceUnavailable))
}

type recordingHooks struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) OnStageStart(_ context.Context, stage string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "start:"+stage)
}

func (h *recordingHooks) OnStageComplete(_ context.Context, stage string, _ int, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "err"
	}
	h.events = append(h.events, stage+":"+status)
}

func TestExecuteHooks(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)

	_, err := NewRunner(source, nil).Execute(context.Background(), Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"start:load", "load:ok",
		"start:fetch", "fetch:ok",
		"start:resolve", "resolve:ok",
		"start:synthesize", "synthesize:ok",
		"start:emit", "emit:ok",
	}, hooks.events)
}

func TestExecuteHooksOnFailure(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)

	_, err := NewRunner(failingSource{err: errors.New(errors.ErrCodeSourceUnavailable, "down")}, nil).
		Execute(context.Background(), Options{DryRun: true})
	require.Error(t, err)
	assert.Equal(t, []string{"start:load", "load:ok", "start:fetch", "fetch:err"}, hooks.events)
}
