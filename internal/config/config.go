// Package config loads topcrates settings from defaults, an optional TOML
// config file, TOPCRATES_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/matzehuels/topcrates/pkg/errors"
	"github.com/matzehuels/topcrates/pkg/integrations/crates"
	"github.com/matzehuels/topcrates/pkg/overrides"
	"github.com/matzehuels/topcrates/pkg/pipeline"
)

const (
	// AppName names the cache directory and the config file.
	AppName = "topcrates"
	// FileName is the config file looked up in the working directory.
	FileName = AppName + ".toml"
	// EnvPrefix prefixes environment overrides, e.g. TOPCRATES_CACHE_BACKEND.
	EnvPrefix = "TOPCRATES"
)

// Ranking sources.
const (
	SourceCratesIO = "crates.io"
	SourceSnapshot = "snapshot"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// DefaultCacheTTL is how long registry responses are reused.
const DefaultCacheTTL = 24 * time.Hour

// Config holds resolved settings.
type Config struct {
	Modifications string   `mapstructure:"modifications"`
	Limit         int      `mapstructure:"limit"`
	Source        string   `mapstructure:"source"`
	Snapshot      string   `mapstructure:"snapshot"`
	UserAgent     string   `mapstructure:"user_agent"`
	Cache         Cache    `mapstructure:"cache"`
	Registry      Registry `mapstructure:"registry"`
}

// Cache configures the registry response cache.
type Cache struct {
	Backend  string        `mapstructure:"backend"`
	Dir      string        `mapstructure:"dir"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Registry configures the crates.io client.
type Registry struct {
	URL     string `mapstructure:"url"`
	Refresh bool   `mapstructure:"refresh"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	dir, err := DefaultCacheDir()
	if err != nil {
		dir = ""
	}
	return Config{
		Modifications: overrides.DefaultFile,
		Limit:         pipeline.DefaultLimit,
		Source:        SourceCratesIO,
		UserAgent:     crates.DefaultUserAgent,
		Cache: Cache{
			Backend: BackendFile,
			Dir:     dir,
			TTL:     DefaultCacheTTL,
		},
		Registry: Registry{URL: crates.DefaultBaseURL},
	}
}

// New returns a viper instance primed with defaults and environment
// lookups.
func New() *viper.Viper {
	v := viper.New()

	d := Defaults()
	v.SetDefault("modifications", d.Modifications)
	v.SetDefault("limit", d.Limit)
	v.SetDefault("source", d.Source)
	v.SetDefault("snapshot", d.Snapshot)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.redis_url", d.Cache.RedisURL)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("registry.url", d.Registry.URL)
	v.SetDefault("registry.refresh", d.Registry.Refresh)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Bind maps flags onto config keys. Flags that were not set on the command
// line leave lower-precedence values in place.
func Bind(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := flags.Lookup(flag)
		if f == nil {
			return fmt.Errorf("bind %s: unknown flag --%s", key, flag)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads the config file at path, or FileName in the working directory
// when path is empty and that file exists, and returns the merged settings.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path == "" && fileExists(FileName) {
		path = FileName
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	if c.Limit <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "limit must be positive, got %d", c.Limit)
	}
	switch c.Source {
	case SourceCratesIO:
	case SourceSnapshot:
		if c.Snapshot == "" {
			return errors.New(errors.ErrCodeInvalidInput, "source %q requires a snapshot file", SourceSnapshot)
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			"unknown source %q (must be %s or %s)", c.Source, SourceCratesIO, SourceSnapshot)
	}
	switch c.Cache.Backend {
	case BackendFile:
		if c.Cache.Dir == "" {
			return errors.New(errors.ErrCodeInvalidInput, "file cache requires cache.dir")
		}
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidInput, "redis cache requires cache.redis_url")
		}
	case BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			"unknown cache backend %q (must be %s, %s or %s)", c.Cache.Backend, BackendFile, BackendRedis, BackendNone)
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache.ttl cannot be negative")
	}
	return nil
}

// DefaultCacheDir returns the cache directory using the XDG convention
// (~/.cache/topcrates/).
func DefaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
