// Package manifest turns a resolved dependency set into the playground's
// Cargo manifest and the crate information list shown by its UI.
//
// The manifest carries the same set twice, as [dependencies] and
// [build-dependencies], so procedural macros and build scripts can use every
// crate available to user code. Both tables are built independently and must
// stay equal; [Check] verifies this along with the alignment between the
// manifest and the crate information list.
package manifest

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/topcrates/pkg/errors"
	"github.com/matzehuels/topcrates/pkg/resolve"
)

// Document is a Cargo.toml.
type Document struct {
	Package           Package                   `toml:"package"`
	Profile           map[string]Profile        `toml:"profile"`
	Dependencies      map[string]DependencySpec `toml:"dependencies"`
	BuildDependencies map[string]DependencySpec `toml:"build-dependencies"`
}

// Package is the [package] table.
type Package struct {
	Name     string   `toml:"name"`
	Version  string   `toml:"version"`
	Authors  []string `toml:"authors"`
	Resolver string   `toml:"resolver"`
}

// Profile is one [profile.<name>] table.
type Profile struct {
	CodegenUnits  int           `toml:"codegen-units"`
	Incremental   bool          `toml:"incremental"`
	BuildOverride BuildOverride `toml:"build-override"`
}

// BuildOverride applies to build scripts and proc macros.
type BuildOverride struct {
	CodegenUnits int  `toml:"codegen-units"`
	Debug        bool `toml:"debug"`
}

// DependencySpec is one dependency entry.
type DependencySpec struct {
	Version  string   `toml:"version"`
	Features []string `toml:"features,omitempty"`
}

// CrateInfo describes one crate to the playground UI. ID is the name as it
// appears in Rust paths.
type CrateInfo struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	ID            string   `json:"id"`
	Features      []string `json:"features,omitempty"`
	Documentation string   `json:"documentation,omitempty"`
	Description   string   `json:"description,omitempty"`
}

// Header returns the fixed [package] table.
func Header() Package {
	return Package{
		Name:     "playground",
		Version:  "0.0.1",
		Authors:  []string{"The Rust Playground"},
		Resolver: "2",
	}
}

// Profiles returns the fixed dev and release profiles: a single codegen
// unit and no incremental compilation, with debug info for build scripts in
// dev only.
func Profiles() map[string]Profile {
	return map[string]Profile{
		"dev": {
			CodegenUnits:  1,
			Incremental:   false,
			BuildOverride: BuildOverride{CodegenUnits: 1, Debug: true},
		},
		"release": {
			CodegenUnits:  1,
			Incremental:   false,
			BuildOverride: BuildOverride{CodegenUnits: 1, Debug: false},
		},
	}
}

// Synthesize builds the manifest and one CrateInfo per dependency, ordered by
// name.
func Synthesize(deps []resolve.Dependency) (*Document, []CrateInfo) {
	sorted := slices.Clone(deps)
	slices.SortStableFunc(sorted, func(a, b resolve.Dependency) int { return cmp.Compare(a.Name, b.Name) })

	doc := &Document{
		Package:           Header(),
		Profile:           Profiles(),
		Dependencies:      dependencyTable(sorted),
		BuildDependencies: dependencyTable(sorted),
	}

	infos := make([]CrateInfo, 0, len(sorted))
	for _, d := range sorted {
		infos = append(infos, CrateInfo{
			Name:          d.Name,
			Version:       d.Version,
			ID:            CrateID(d.Name),
			Features:      slices.Clone(d.Features),
			Documentation: d.Documentation,
			Description:   d.Description,
		})
	}
	return doc, infos
}

func dependencyTable(deps []resolve.Dependency) map[string]DependencySpec {
	table := make(map[string]DependencySpec, len(deps))
	for _, d := range deps {
		table[d.Name] = DependencySpec{Version: d.Version, Features: slices.Clone(d.Features)}
	}
	return table
}

// CrateID returns the identifier used for a crate in Rust source.
func CrateID(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// Check verifies that doc and infos describe the same crate set: the two
// dependency tables are equal and infos lists every dependency exactly once,
// in name order, with matching versions and features.
func Check(doc *Document, infos []CrateInfo) error {
	if doc == nil {
		return errors.New(errors.ErrCodeInvalidManifest, "manifest is missing")
	}
	if !maps.EqualFunc(doc.Dependencies, doc.BuildDependencies, specEqual) {
		return errors.New(errors.ErrCodeInvalidManifest, "dependencies and build-dependencies differ")
	}
	if len(infos) != len(doc.Dependencies) {
		return errors.New(errors.ErrCodeInvalidManifest,
			"manifest has %d dependencies but crate information has %d entries", len(doc.Dependencies), len(infos))
	}

	for i, info := range infos {
		if i > 0 && infos[i-1].Name >= info.Name {
			return errors.New(errors.ErrCodeInvalidManifest,
				"crate information is not in name order at %q", info.Name)
		}
		spec, ok := doc.Dependencies[info.Name]
		if !ok {
			return errors.New(errors.ErrCodeInvalidManifest, "crate %q is not in the manifest", info.Name)
		}
		if spec.Version != info.Version {
			return errors.New(errors.ErrCodeInvalidManifest,
				"crate %q has version %q in the manifest but %q in crate information", info.Name, spec.Version, info.Version)
		}
		if !slices.Equal(spec.Features, info.Features) {
			return errors.New(errors.ErrCodeInvalidManifest, "crate %q has mismatched features", info.Name)
		}
		if info.ID != CrateID(info.Name) {
			return errors.New(errors.ErrCodeInvalidManifest, "crate %q has id %q", info.Name, info.ID)
		}
	}
	return nil
}

func specEqual(a, b DependencySpec) bool {
	return a.Version == b.Version && slices.Equal(a.Features, b.Features)
}
