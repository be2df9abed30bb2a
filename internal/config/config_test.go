package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/topcrates/pkg/errors"
	"github.com/matzehuels/topcrates/pkg/integrations/crates"
	"github.com/matzehuels/topcrates/pkg/overrides"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, overrides.DefaultFile, cfg.Modifications)
	assert.Equal(t, 100, cfg.Limit)
	assert.Equal(t, SourceCratesIO, cfg.Source)
	assert.Equal(t, crates.DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, BackendFile, cfg.Cache.Backend)
	assert.Equal(t, filepath.Join("/tmp/xdg", AppName), cfg.Cache.Dir)
	assert.Equal(t, DefaultCacheTTL, cfg.Cache.TTL)
	assert.Equal(t, crates.DefaultBaseURL, cfg.Registry.URL)
	assert.False(t, cfg.Registry.Refresh)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `
limit = 25
source = "snapshot"
snapshot = "ranking.json"

[cache]
backend = "redis"
redis_url = "redis://localhost:6379/0"
ttl = "2h"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Limit)
	assert.Equal(t, SourceSnapshot, cfg.Source)
	assert.Equal(t, "ranking.json", cfg.Snapshot)
	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, overrides.DefaultFile, cfg.Modifications, "unset keys keep defaults")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("TOPCRATES_LIMIT", "12")
	t.Setenv("TOPCRATES_CACHE_BACKEND", "none")
	t.Setenv("TOPCRATES_CACHE_TTL", "30m")
	t.Setenv("TOPCRATES_REGISTRY_URL", "http://mirror.local/api/v1")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Limit)
	assert.Equal(t, BackendNone, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "http://mirror.local/api/v1", cfg.Registry.URL)
}

func TestBindFlags(t *testing.T) {
	t.Setenv("TOPCRATES_LIMIT", "12")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("limit", 100, "")
	flags.String("modifications", overrides.DefaultFile, "")
	require.NoError(t, flags.Parse([]string{"--limit", "7"}))

	v := New()
	require.NoError(t, Bind(v, flags, map[string]string{
		"limit":         "limit",
		"modifications": "modifications",
	}))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Limit, "flag beats environment")
	assert.Equal(t, overrides.DefaultFile, cfg.Modifications)
}

func TestBindUnknownFlag(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	err := Bind(New(), flags, map[string]string{"missing": "limit"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--missing")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero limit", func(c *Config) { c.Limit = 0 }, "limit"},
		{"unknown source", func(c *Config) { c.Source = "lib.rs" }, "unknown source"},
		{"snapshot without file", func(c *Config) { c.Source = SourceSnapshot }, "snapshot file"},
		{"snapshot with file", func(c *Config) { c.Source = SourceSnapshot; c.Snapshot = "r.json" }, ""},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, "unknown cache backend"},
		{"redis without url", func(c *Config) { c.Cache.Backend = BackendRedis }, "redis_url"},
		{"file without dir", func(c *Config) { c.Cache.Dir = "" }, "cache.dir"},
		{"none backend", func(c *Config) { c.Cache.Backend = BackendNone; c.Cache.Dir = "" }, ""},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Second }, "ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Cache.Dir = "/tmp/cache"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := DefaultCacheDir()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".cache", AppName), dir)
	assert.True(t, strings.HasSuffix(dir, AppName))
}

func TestDefaultCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")

	dir, err := DefaultCacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/custom-cache", AppName), dir)
}
