package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/topcrates/pkg/overrides"
	"github.com/matzehuels/topcrates/pkg/ranking"
)

// snapshotCommand creates the snapshot command.
func (c *CLI) snapshotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <file>",
		Short: "Freeze the current ranking to a JSON file",
		Long: `Snapshot fetches the ranking and stores it together with the metadata of
every crate force-included by the rule file, so a later run with
--source snapshot --snapshot <file> produces byte-identical output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			names, err := c.forceIncluded()
			if err != nil {
				return err
			}

			source, closeFn, err := c.newSource(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			spinner := newSpinnerWithContext(ctx, "Fetching ranking...")
			spinner.Start()
			pkgs, described, err := freeze(ctx, source, c.cfg.Limit, names)
			if err != nil {
				spinner.StopWithError("Ranking fetch failed")
				return err
			}
			spinner.Stop()

			if err := ranking.WriteSnapshot(args[0], c.cfg.Source, pkgs, described); err != nil {
				return err
			}
			printSuccess("Saved %d ranked crates", len(pkgs))
			if len(described) > 0 {
				printDetail("Described %d force-included crates", len(described))
			}
			printFile(args[0])
			return nil
		},
	}
}

// forceIncluded lists the crates the configured rule file force-includes.
func (c *CLI) forceIncluded() ([]string, error) {
	if c.cfg.Modifications == "" {
		return nil, nil
	}
	rules, err := overrides.Load(c.cfg.Modifications)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, r := range overrides.NewStore(rules).Rules(overrides.ForceInclude) {
		names = append(names, r.Crate)
	}
	return names, nil
}

// freeze fetches the ranking and the metadata of the named crates.
func freeze(ctx context.Context, source ranking.Source, limit int, names []string) (pkgs, described []ranking.Package, err error) {
	pkgs, err = source.Fetch(ctx, limit)
	if err != nil {
		return nil, nil, err
	}
	described, err = ranking.DescribeAll(ctx, source, names)
	if err != nil {
		return nil, nil, err
	}
	return pkgs, described, nil
}
