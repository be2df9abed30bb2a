package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/topcrates/pkg/emit"
	"github.com/matzehuels/topcrates/pkg/pipeline"
)

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [output-dir]",
		Short: "Write Cargo.toml and crate-information.json",
		Long: `Generate fetches the crate ranking, applies the override rules and writes
Cargo.toml and crate-information.json into output-dir (default ` + pipeline.DefaultOutputDir + `).

Both files are written together: if either write fails, neither is replaced.`,
		Example: `  # Regenerate the playground's base crate
  topcrates generate ../compiler/base

  # Preview without touching any files
  topcrates generate --dry-run

  # Reproduce a previous run from a frozen ranking
  topcrates generate --source snapshot --snapshot ranking.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.runGenerate,
	}
	addDryRunFlag(cmd)
	return cmd
}

func addDryRunFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "print both files instead of writing them")
}

func (c *CLI) runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	opts := c.pipelineOptions()
	opts.DryRun = dryRun
	if len(args) > 0 {
		opts.OutputDir = args[0]
	}

	runner, closeFn, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Generating crate set...")
	if !c.verbose {
		spinner.Start()
	}
	result, err := runner.Execute(ctx, opts)
	if !c.verbose {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s\n# %s\n%s", emit.ManifestFile, result.ManifestData, emit.InfoFile, result.InfoData)
		return nil
	}

	prog.done(fmt.Sprintf("Generated %d crates", result.Stats.CrateCount))
	printSuccess("Wrote %d crates (%d ranked, %d manual)",
		result.Stats.CrateCount, result.Stats.CrateCount-result.Stats.ManualCount, result.Stats.ManualCount)
	for _, path := range result.Files.Paths() {
		printFile(path)
	}
	printDetail("Overrides: %s (%d rules)", opts.Modifications, result.Stats.RuleCount)
	if result.Stats.RankedCount < c.cfg.Limit {
		printWarning("Ranking returned %d of %d requested crates", result.Stats.RankedCount, c.cfg.Limit)
	}
	return nil
}
