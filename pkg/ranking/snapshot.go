package ranking

import (
	"context"
	"encoding/json"
	"os"
	"slices"

	"github.com/matzehuels/topcrates/pkg/errors"
)

// snapshotFile is the on-disk form of a frozen ranking. Described holds
// metadata for crates outside the ranking, as returned by the live source's
// [Describer] when the snapshot was taken.
type snapshotFile struct {
	Source    string    `json:"source"`
	Packages  []Package `json:"packages"`
	Described []Package `json:"described,omitempty"`
}

// Snapshot replays a ranking written by [WriteSnapshot]. It implements
// [Describer] from the stored metadata, so a replay describes force-included
// crates exactly as the live run did.
type Snapshot struct {
	Path string
}

// Fetch reads the snapshot file and returns its normalized contents.
func (s Snapshot) Fetch(ctx context.Context, limit int) ([]Package, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	pkgs, err := ReadSnapshot(s.Path)
	if err != nil {
		return nil, unavailable(err, "snapshot "+s.Path)
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err, "snapshot "+s.Path)
	}
	return Normalize(pkgs, limit), nil
}

// Describe returns the stored metadata for name. Described entries take
// precedence over ranked ones.
func (s Snapshot) Describe(ctx context.Context, name string) (Package, bool, error) {
	f, err := readSnapshotFile(s.Path)
	if err != nil {
		return Package{}, false, unavailable(err, "snapshot "+s.Path)
	}
	if err := ctx.Err(); err != nil {
		return Package{}, false, unavailable(err, "snapshot "+s.Path)
	}
	for _, list := range [][]Package{f.Described, f.Packages} {
		for _, p := range list {
			if p.Name == name {
				return p, true, nil
			}
		}
	}
	return Package{}, false, nil
}

// ReadSnapshot loads the ranked packages stored at path.
func ReadSnapshot(path string) ([]Package, error) {
	f, err := readSnapshotFile(path)
	if err != nil {
		return nil, err
	}
	return f.Packages, nil
}

func readSnapshotFile(path string) (snapshotFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshotFile{}, errors.Wrap(errors.ErrCodeIO, err, "read snapshot")
	}
	var f snapshotFile
	if err := json.Unmarshal(data, &f); err != nil {
		return snapshotFile{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode snapshot %s", path)
	}
	for _, p := range slices.Concat(f.Packages, f.Described) {
		if err := errors.ValidateCratesPackageName(p.Name); err != nil {
			return snapshotFile{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "snapshot %s", path)
		}
	}
	return f, nil
}

// WriteSnapshot stores the ranked pkgs at path, recording where they came
// from. described carries metadata for crates outside the ranking (see
// [DescribeAll]) and may be nil.
func WriteSnapshot(path, source string, pkgs, described []Package) error {
	if pkgs == nil {
		pkgs = []Package{}
	}
	f := snapshotFile{Source: source, Packages: pkgs, Described: described}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode snapshot")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write snapshot")
	}
	return nil
}
