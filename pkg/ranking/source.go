// Package ranking provides popularity-ordered crate lists.
//
// A [Source] returns at most limit packages, most popular first. Three
// sources are provided: [Registry] queries crates.io, [Snapshot] replays a
// ranking frozen to disk and [Static] serves a fixed list.
package ranking

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/matzehuels/topcrates/pkg/errors"
)

// Package is one ranked crate. Rank is 1-based after [Normalize].
type Package struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Rank          int      `json:"rank"`
	Features      []string `json:"features,omitempty"`
	Downloads     int64    `json:"downloads"`
	Description   string   `json:"description,omitempty"`
	Documentation string   `json:"documentation,omitempty"`
	Repository    string   `json:"repository,omitempty"`
}

// Source fetches a ranked crate list.
type Source interface {
	// Fetch returns up to limit packages in rank order. Any failure is
	// reported as SOURCE_UNAVAILABLE.
	Fetch(ctx context.Context, limit int) ([]Package, error)
}

// Describer looks up metadata for a crate outside the ranking. ok is false
// when the crate is unknown to the source.
type Describer interface {
	Describe(ctx context.Context, name string) (pkg Package, ok bool, err error)
}

// Normalize orders packages by downloads descending, then by the supplied
// rank ascending (unranked entries last), then by name. It drops repeated
// names (keeping the most popular entry), truncates to limit and assigns
// ranks 1..n. The input is not modified.
func Normalize(pkgs []Package, limit int) []Package {
	sorted := slices.Clone(pkgs)
	slices.SortStableFunc(sorted, func(a, b Package) int {
		if c := cmp.Compare(b.Downloads, a.Downloads); c != 0 {
			return c
		}
		if c := cmp.Compare(rankKey(a.Rank), rankKey(b.Rank)); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	seen := make(map[string]bool, len(sorted))
	out := make([]Package, 0, min(len(sorted), max(limit, 0)))
	for _, p := range sorted {
		if len(out) >= limit {
			break
		}
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		p.Features = slices.Clone(p.Features)
		p.Rank = len(out) + 1
		out = append(out, p)
	}
	return out
}

// rankKey sorts unset ranks after every assigned one.
func rankKey(rank int) int {
	if rank <= 0 {
		return math.MaxInt
	}
	return rank
}

func checkLimit(limit int) error {
	if limit <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "ranking limit must be positive, got %d", limit)
	}
	return nil
}

func unavailable(err error, source string) error {
	return errors.Wrap(errors.ErrCodeSourceUnavailable, err, "fetch ranking from %s", source)
}

// DescribeAll looks up every name through src when it is a [Describer].
// Names the source does not know are skipped. Sources that cannot describe
// yield nil.
func DescribeAll(ctx context.Context, src Source, names []string) ([]Package, error) {
	d, ok := src.(Describer)
	if !ok {
		return nil, nil
	}
	var out []Package
	for _, name := range names {
		p, found, err := d.Describe(ctx, name)
		if err != nil {
			return nil, err
		}
		if found {
			p.Features = slices.Clone(p.Features)
			out = append(out, p)
		}
	}
	return out, nil
}

// Static is a fixed package list.
type Static []Package

// Fetch returns the normalized list.
func (s Static) Fetch(ctx context.Context, limit int) ([]Package, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err, "static list")
	}
	return Normalize(s, limit), nil
}

// Describe finds name in the list.
func (s Static) Describe(_ context.Context, name string) (Package, bool, error) {
	for _, p := range s {
		if p.Name == name {
			return p, true, nil
		}
	}
	return Package{}, false, nil
}
