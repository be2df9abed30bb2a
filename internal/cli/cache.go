package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/topcrates/internal/config"
	"github.com/matzehuels/topcrates/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the registry response cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached registry responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if c.cfg.Cache.Backend == config.BackendNone {
				printInfo("Cache is disabled")
				return nil
			}

			backend, err := newCache(ctx, c.cfg.Cache)
			if err != nil {
				return err
			}
			defer backend.Close()

			var count int
			switch b := backend.(type) {
			case *cache.FileCache:
				count, err = b.Clear(ctx)
			case *cache.RedisCache:
				count, err = b.Clear(ctx, redisKeyPrefix)
			}
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			if count == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached entries", count)
			printDetail("Location: %s", cacheLocation(c.cfg.Cache))
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache location",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), cacheLocation(c.cfg.Cache))
			return nil
		},
	}
}

// cacheLocation describes where the configured backend keeps its entries.
func cacheLocation(cfg config.Cache) string {
	switch cfg.Backend {
	case config.BackendRedis:
		return cfg.RedisURL + " (" + redisKeyPrefix + "*)"
	case config.BackendNone:
		return "(disabled)"
	default:
		return cfg.Dir
	}
}
