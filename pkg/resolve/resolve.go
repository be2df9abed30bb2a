// Package resolve merges a popularity ranking with override rules into the
// final dependency set.
//
// Rule categories are applied globally in a fixed order: exclude,
// force-include, pin-version, add-feature. Exclusion therefore dominates any
// other rule naming the same crate, wherever the rules appear in the file.
// The result is sorted by crate name.
package resolve

import (
	"cmp"
	"slices"

	"github.com/matzehuels/topcrates/pkg/errors"
	"github.com/matzehuels/topcrates/pkg/overrides"
	"github.com/matzehuels/topcrates/pkg/ranking"
)

// Origin records why a dependency is in the set.
type Origin int

const (
	// Auto dependencies come from the ranking.
	Auto Origin = iota
	// Manual dependencies were force-included by a rule.
	Manual
)

func (o Origin) String() string {
	if o == Manual {
		return "manual"
	}
	return "auto"
}

// Dependency is one resolved crate.
type Dependency struct {
	Name          string
	Version       string
	Features      []string
	Origin        Origin
	Description   string
	Documentation string
}

// Resolve builds the dependency set. Inputs are not modified.
//
// A pin-version or add-feature rule whose crate is neither ranked nor
// force-included fails with UNKNOWN_PACKAGE. Rules naming an excluded crate
// are ignored.
func Resolve(ranked []ranking.Package, rules []overrides.Rule) ([]Dependency, error) {
	store := overrides.NewStore(rules)

	set := make(map[string]*Dependency, len(ranked))
	for _, p := range ranked {
		if _, ok := set[p.Name]; ok {
			continue
		}
		set[p.Name] = &Dependency{
			Name:          p.Name,
			Version:       p.Version,
			Features:      slices.Clone(p.Features),
			Origin:        Auto,
			Description:   p.Description,
			Documentation: p.Documentation,
		}
	}

	excluded := make(map[string]bool)
	for _, r := range store.Rules(overrides.Exclude) {
		excluded[r.Crate] = true
		delete(set, r.Crate)
	}

	for _, r := range store.Rules(overrides.ForceInclude) {
		if excluded[r.Crate] {
			continue
		}
		if _, ok := set[r.Crate]; ok {
			continue
		}
		set[r.Crate] = &Dependency{Name: r.Crate, Version: r.Version, Origin: Manual}
	}

	for _, r := range store.Rules(overrides.PinVersion) {
		dep, err := target(set, excluded, r)
		if err != nil {
			return nil, err
		}
		if dep != nil {
			dep.Version = r.Version
		}
	}

	for _, r := range store.Rules(overrides.AddFeature) {
		dep, err := target(set, excluded, r)
		if err != nil {
			return nil, err
		}
		if dep != nil {
			dep.Features = append(dep.Features, r.Features...)
		}
	}

	deps := make([]Dependency, 0, len(set))
	for _, dep := range set {
		dep.Features = normalizeFeatures(dep.Features)
		deps = append(deps, *dep)
	}
	slices.SortFunc(deps, func(a, b Dependency) int { return cmp.Compare(a.Name, b.Name) })
	return deps, nil
}

// target returns the entry a rule modifies, or nil for an excluded crate.
func target(set map[string]*Dependency, excluded map[string]bool, r overrides.Rule) (*Dependency, error) {
	if dep, ok := set[r.Crate]; ok {
		return dep, nil
	}
	if excluded[r.Crate] {
		return nil, nil
	}
	return nil, errors.New(errors.ErrCodeUnknownPackage,
		"%s rule targets %q, which is neither ranked nor force-included", r.Action, r.Crate)
}

func normalizeFeatures(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

// ManualNames returns the names of force-included dependencies.
func ManualNames(deps []Dependency) []string {
	var names []string
	for _, d := range deps {
		if d.Origin == Manual {
			names = append(names, d.Name)
		}
	}
	return names
}
