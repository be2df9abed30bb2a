// Command topcrates regenerates the Rust playground's Cargo.toml and
// crate-information.json.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"

	"github.com/matzehuels/topcrates/internal/cli"
	"github.com/matzehuels/topcrates/pkg/buildinfo"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()

	// fang overrides root.Version, so the version is passed explicitly.
	err := fang.Execute(ctx, root,
		fang.WithVersion(buildinfo.Short()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		os.Exit(1)
	}
}
