// Package overrides loads the curated modification rules applied on top of
// the automatic popularity ranking.
//
// The rule file is TOML with one table per crate:
//
//	[crates.rand]
//	exclude = true
//
//	[crates.regex]
//	include = "1.0"          # force-include at this version
//
//	[crates.serde]
//	version = "=1.0.190"     # pin the version requirement
//	features = ["derive"]    # enable extra features
//
// A table may combine include, version and features. Combining exclude with
// anything else is a conflict and is rejected by [Parse].
package overrides

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/topcrates/pkg/errors"
)

// DefaultFile is the conventional rule file name.
const DefaultFile = "crate-modifications.toml"

// Action is the kind of modification a rule applies.
type Action int

// Actions in the order the resolver applies them. ForceInclude sorts first
// only for canonical rule ordering; resolution applies Exclude first.
const (
	ForceInclude Action = iota
	Exclude
	PinVersion
	AddFeature
)

var actionNames = [...]string{"force-include", "exclude", "pin-version", "add-feature"}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Rule is one modification of one crate. Version is set for ForceInclude and
// PinVersion; Features for AddFeature.
type Rule struct {
	Crate    string
	Action   Action
	Version  string
	Features []string
}

// file mirrors the on-disk layout.
type file struct {
	Crates map[string]entry `toml:"crates"`
}

type entry struct {
	Exclude  bool     `toml:"exclude,omitempty"`
	Include  string   `toml:"include,omitempty"`
	Version  string   `toml:"version,omitempty"`
	Features []string `toml:"features,omitempty"`
}

// Load reads and parses the rule file at path.
func Load(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read override file %s", path)
	}
	return Parse(data)
}

// Parse decodes rules from TOML. Rules are returned in canonical order:
// crate name ascending, then action.
func Parse(data []byte) ([]Rule, error) {
	var f file
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigMalformed, err, "parse override file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeConfigMalformed, "unknown keys in override file: %s", strings.Join(keys, ", "))
	}

	names := make([]string, 0, len(f.Crates))
	for name := range f.Crates {
		names = append(names, name)
	}
	sort.Strings(names)

	var rules []Rule
	for _, name := range names {
		defined := func(key string) bool { return md.IsDefined("crates", name, key) }
		rs, err := entryRules(name, f.Crates[name], defined)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rs...)
	}
	return rules, nil
}

func entryRules(name string, e entry, defined func(string) bool) ([]Rule, error) {
	if err := errors.ValidateCratesPackageName(name); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigMalformed, err, "crate %q", name)
	}

	var rules []Rule
	if defined("include") {
		if err := errors.ValidateVersionReq(e.Include); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigMalformed, err, "crate %q: include", name)
		}
		rules = append(rules, Rule{Crate: name, Action: ForceInclude, Version: e.Include})
	}
	if e.Exclude {
		rules = append(rules, Rule{Crate: name, Action: Exclude})
	}
	if defined("version") {
		if err := errors.ValidateVersionReq(e.Version); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigMalformed, err, "crate %q: version", name)
		}
		rules = append(rules, Rule{Crate: name, Action: PinVersion, Version: e.Version})
	}
	if len(e.Features) > 0 {
		for _, feat := range e.Features {
			if err := errors.ValidateFeatureName(feat); err != nil {
				return nil, errors.Wrap(errors.ErrCodeConfigMalformed, err, "crate %q: features", name)
			}
		}
		rules = append(rules, Rule{Crate: name, Action: AddFeature, Features: normalizeFeatures(e.Features)})
	}

	if len(rules) == 0 {
		if defined("exclude") {
			// exclude = false and nothing else
			return nil, nil
		}
		return nil, errors.New(errors.ErrCodeConfigMalformed, "crate %q has no rule", name)
	}
	return rules, checkConflicts(name, rules)
}

func checkConflicts(name string, rules []Rule) error {
	excluded := false
	var others []string
	for _, r := range rules {
		if r.Action == Exclude {
			excluded = true
		} else {
			others = append(others, r.Action.String())
		}
	}
	if excluded && len(others) > 0 {
		return errors.New(errors.ErrCodeConfigConflict,
			"crate %q is excluded but also has %s", name, strings.Join(others, ", "))
	}
	return nil
}

// Encode writes rules back into the rule file format. Multiple rules of the
// same action for one crate are merged (features unioned, last version wins).
// Parse(Encode(rules)) returns the canonical form of rules.
func Encode(rules []Rule) ([]byte, error) {
	f := file{Crates: make(map[string]entry)}
	for _, r := range rules {
		e := f.Crates[r.Crate]
		switch r.Action {
		case ForceInclude:
			e.Include = r.Version
		case Exclude:
			e.Exclude = true
		case PinVersion:
			e.Version = r.Version
		case AddFeature:
			e.Features = normalizeFeatures(append(e.Features, r.Features...))
		default:
			return nil, errors.New(errors.ErrCodeInvalidInput, "unknown action %v for crate %q", r.Action, r.Crate)
		}
		f.Crates[r.Crate] = e
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode override file")
	}
	return buf.Bytes(), nil
}

// normalizeFeatures returns a sorted copy without duplicates.
func normalizeFeatures(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
