package cli

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/topcrates/pkg/emit"
	"github.com/matzehuels/topcrates/pkg/errors"
	"github.com/matzehuels/topcrates/pkg/manifest"
	"github.com/matzehuels/topcrates/pkg/pipeline"
)

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [output-dir]",
		Short: "Verify that generated files agree with each other",
		Long: `Check reads Cargo.toml and crate-information.json from output-dir and
verifies that both dependency tables are equal and that the crate information
lists the same crates in the same order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := pipeline.DefaultOutputDir
			if len(args) > 0 {
				dir = args[0]
			}

			doc, infos, err := readOutputs(dir)
			if err != nil {
				return err
			}
			if err := manifest.Check(doc, infos); err != nil {
				return err
			}
			printSuccess("%d crates consistent", len(infos))
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// readOutputs loads both generated files from dir.
func readOutputs(dir string) (*manifest.Document, []manifest.CrateInfo, error) {
	manifestPath := filepath.Join(dir, emit.ManifestFile)
	var doc manifest.Document
	if _, err := toml.DecodeFile(manifestPath, &doc); err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", manifestPath)
		}
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", manifestPath)
	}

	infoPath := filepath.Join(dir, emit.InfoFile)
	data, err := os.ReadFile(infoPath)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", infoPath)
	}
	var infos []manifest.CrateInfo
	if err := json.Unmarshal(data, &infos); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", infoPath)
	}
	return &doc, infos, nil
}
