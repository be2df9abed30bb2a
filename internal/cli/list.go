package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/topcrates/pkg/resolve"
)

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the resolved crate set without writing files",
		Example: `  # Everything that would go into the manifest
  topcrates list

  # Only crates added by crate-modifications.toml
  topcrates list --manual`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manualOnly, _ := cmd.Flags().GetBool("manual")

			runner, closeFn, err := c.newRunner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := runner.Plan(cmd.Context(), c.pipelineOptions())
			if err != nil {
				return err
			}

			deps := result.Dependencies
			if manualOnly {
				deps = filterManual(deps)
			}
			renderDependencies(cmd.OutOrStdout(), deps)
			return nil
		},
	}
	cmd.Flags().Bool("manual", false, "only show force-included crates")
	return cmd
}

func filterManual(deps []resolve.Dependency) []resolve.Dependency {
	var out []resolve.Dependency
	for _, d := range deps {
		if d.Origin == resolve.Manual {
			out = append(out, d)
		}
	}
	return out
}

// renderDependencies writes deps as a table followed by a count.
func renderDependencies(w io.Writer, deps []resolve.Dependency) {
	if len(deps) == 0 {
		fmt.Fprintln(w, "(0 crates)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Crate", "Version", "Origin", "Features"})
	for _, d := range deps {
		t.AppendRow(table.Row{d.Name, d.Version, d.Origin, strings.Join(d.Features, ", ")})
	}
	t.Render()
	fmt.Fprintf(w, "(%d crates)\n", len(deps))
}
