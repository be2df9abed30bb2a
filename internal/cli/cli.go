package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matzehuels/topcrates/internal/config"
	"github.com/matzehuels/topcrates/pkg/buildinfo"
	"github.com/matzehuels/topcrates/pkg/cache"
	"github.com/matzehuels/topcrates/pkg/errors"
	"github.com/matzehuels/topcrates/pkg/integrations"
	"github.com/matzehuels/topcrates/pkg/integrations/crates"
	"github.com/matzehuels/topcrates/pkg/pipeline"
	"github.com/matzehuels/topcrates/pkg/ranking"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = config.AppName

// redisKeyPrefix scopes keys in a shared Redis instance.
const redisKeyPrefix = appName + ":"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	v       *viper.Viper
	cfg     *config.Config
	cfgFile string
	verbose bool
	noCache bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		v:      config.New(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// Run without a subcommand, it behaves like "generate".
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName + " [output-dir]",
		Short: "Topcrates generates the Rust playground's crate manifest",
		Long: `Topcrates selects the most downloaded crates on crates.io, applies the curated
rules from crate-modifications.toml and writes the playground's Cargo.toml and
crate-information.json.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: c.setup,
		RunE:              c.runGenerate,
	}
	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default ./"+config.FileName+" if present)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringP("modifications", "m", "", "override rule file (default "+config.Defaults().Modifications+")")
	pf.IntP("limit", "n", 0, "number of ranked crates to take (default 100)")
	pf.String("source", "", "ranking source: crates.io or snapshot")
	pf.String("snapshot", "", "ranking snapshot file for --source snapshot")
	pf.Bool("refresh", false, "ignore cached registry responses")
	pf.BoolVar(&c.noCache, "no-cache", false, "disable the registry response cache")
	addDryRunFlag(root)

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.cacheCommand())

	traceFailures(root, c.Logger)
	return root
}

// traceFailures logs the error code of any failing command at debug level.
// fang prints the error itself.
func traceFailures(cmd *cobra.Command, logger *log.Logger) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if err != nil {
				logger.Debug("command failed",
					"command", cmd.CommandPath(),
					"code", errors.GetCode(err),
					"reason", errors.UserMessage(err))
			}
			return err
		}
	}
	for _, sub := range cmd.Commands() {
		traceFailures(sub, logger)
	}
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"modifications": "modifications",
	"limit":         "limit",
	"source":        "source",
	"snapshot":      "snapshot",
	"refresh":       "registry.refresh",
}

// setup applies the log level and loads the configuration before any
// command runs.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	if c.verbose {
		c.SetLogLevel(LogDebug)
		installLogHooks(c.Logger)
	}

	// Only flags set on the command line override config and environment.
	keys := make(map[string]string)
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			keys[flag] = key
		}
	}
	if err := config.Bind(c.v, cmd.Flags(), keys); err != nil {
		return err
	}

	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return err
	}
	if c.noCache {
		cfg.Cache.Backend = config.BackendNone
	}
	c.cfg = cfg
	c.Logger.Debug("loaded config",
		"source", cfg.Source,
		"limit", cfg.Limit,
		"cache", cfg.Cache.Backend)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. The returned function
// releases the cache.
func (c *CLI) newRunner(ctx context.Context) (*pipeline.Runner, func() error, error) {
	source, closeFn, err := c.newSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.NewRunner(source, c.Logger), closeFn, nil
}

// newSource builds the configured ranking source.
func (c *CLI) newSource(ctx context.Context) (ranking.Source, func() error, error) {
	if c.cfg.Source == config.SourceSnapshot {
		c.Logger.Debug("using ranking snapshot", "file", c.cfg.Snapshot)
		return ranking.Snapshot{Path: c.cfg.Snapshot}, func() error { return nil }, nil
	}

	backend, err := newCache(ctx, c.cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	var opts []integrations.ClientOption
	if c.cfg.Cache.Backend == config.BackendRedis {
		opts = append(opts, integrations.WithKeyer(cache.NewScopedKeyer(nil, redisKeyPrefix)))
	}
	client := crates.NewClientWithURL(backend, c.cfg.Cache.TTL, c.cfg.Registry.URL, c.cfg.UserAgent, opts...)
	return ranking.NewRegistry(client, c.cfg.Registry.Refresh), backend.Close, nil
}

// newCache opens the configured cache backend.
func newCache(ctx context.Context, cfg config.Cache) (cache.Cache, error) {
	switch cfg.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		c, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open redis cache")
		}
		return c, nil
	default:
		c, err := cache.NewFileCache(cfg.Dir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "open cache directory %s", cfg.Dir)
		}
		return c, nil
	}
}

// pipelineOptions builds run options from the loaded config.
func (c *CLI) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Modifications: c.cfg.Modifications,
		Limit:         c.cfg.Limit,
	}
}
