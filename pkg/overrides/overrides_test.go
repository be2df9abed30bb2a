package overrides

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/topcrates/pkg/errors"
)

const sample = `
[crates.serde]
features = ["rc", "derive", "derive"]
version = "=1.0.190"

[crates.rand]
exclude = true

[crates.regex]
include = "1.0"
`

func TestParse(t *testing.T) {
	rules, err := Parse([]byte(sample))
	require.NoError(t, err)

	want := []Rule{
		{Crate: "rand", Action: Exclude},
		{Crate: "regex", Action: ForceInclude, Version: "1.0"},
		{Crate: "serde", Action: PinVersion, Version: "=1.0.190"},
		{Crate: "serde", Action: AddFeature, Features: []string{"derive", "rc"}},
	}
	assert.Equal(t, want, rules)
}

func TestParseEmpty(t *testing.T) {
	rules, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestParseExcludeFalse(t *testing.T) {
	rules, err := Parse([]byte("[crates.rand]\nexclude = false\n"))
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestParseIncludeWithFeatures(t *testing.T) {
	rules, err := Parse([]byte("[crates.itertools]\ninclude = \"0.12\"\nfeatures = [\"use_std\"]\n"))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, ForceInclude, rules[0].Action)
	assert.Equal(t, AddFeature, rules[1].Action)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"bad toml", "[crates.serde\nversion = 1", errors.ErrCodeConfigMalformed},
		{"unknown key", "[crates.serde]\noptional = true\n", errors.ErrCodeConfigMalformed},
		{"unknown top-level key", "limit = 3\n", errors.ErrCodeConfigMalformed},
		{"wrong type", "[crates.serde]\nexclude = \"yes\"\n", errors.ErrCodeConfigMalformed},
		{"invalid crate name", "[crates.\"9lives\"]\nexclude = true\n", errors.ErrCodeConfigMalformed},
		{"empty include", "[crates.regex]\ninclude = \"\"\n", errors.ErrCodeConfigMalformed},
		{"empty version", "[crates.serde]\nversion = \" \"\n", errors.ErrCodeConfigMalformed},
		{"empty feature", "[crates.serde]\nfeatures = [\"\"]\n", errors.ErrCodeConfigMalformed},
		{"no action", "[crates.serde]\n", errors.ErrCodeConfigMalformed},
		{"exclude and include", "[crates.rand]\nexclude = true\ninclude = \"0.8\"\n", errors.ErrCodeConfigConflict},
		{"exclude and features", "[crates.rand]\nexclude = true\nfeatures = [\"small_rng\"]\n", errors.ErrCodeConfigConflict},
		{"exclude and pin", "[crates.rand]\nexclude = true\nversion = \"0.8\"\n", errors.ErrCodeConfigConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err), "error: %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	rules, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, rules, 4)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeIO))
}

func TestEncodeRoundTrip(t *testing.T) {
	rules, err := Parse([]byte(sample))
	require.NoError(t, err)

	data, err := Encode(rules)
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, rules, again)
}

func TestEncodeCanonicalizes(t *testing.T) {
	rules := []Rule{
		{Crate: "tokio", Action: AddFeature, Features: []string{"full"}},
		{Crate: "anyhow", Action: PinVersion, Version: "1"},
		{Crate: "tokio", Action: AddFeature, Features: []string{"macros", "full"}},
	}
	data, err := Encode(rules)
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []Rule{
		{Crate: "anyhow", Action: PinVersion, Version: "1"},
		{Crate: "tokio", Action: AddFeature, Features: []string{"full", "macros"}},
	}, got)
}

func TestEncodeUnknownAction(t *testing.T) {
	_, err := Encode([]Rule{{Crate: "x", Action: Action(42)}})
	require.Error(t, err)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "exclude", Exclude.String())
	assert.Equal(t, "add-feature", AddFeature.String())
	assert.Equal(t, "action(9)", Action(9).String())
}

func TestStore(t *testing.T) {
	rules, err := Parse([]byte(sample))
	require.NoError(t, err)
	s := NewStore(rules)

	assert.Equal(t, []string{"rand", "regex", "serde"}, s.Crates())
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, []Rule{{Crate: "rand", Action: Exclude}}, s.Rules(Exclude))
	assert.Len(t, s.Rules(PinVersion), 1)
	assert.Len(t, s.For("serde"), 2)
	assert.Empty(t, s.For("tokio"))
}

func TestStoreCopiesInput(t *testing.T) {
	rules := []Rule{{Crate: "serde", Action: AddFeature, Features: []string{"derive"}}}
	s := NewStore(rules)
	rules[0].Features[0] = "mutated"

	assert.Equal(t, []string{"derive"}, s.Rules(AddFeature)[0].Features)
}
