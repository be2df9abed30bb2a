package ranking

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/matzehuels/topcrates/pkg/integrations"
	"github.com/matzehuels/topcrates/pkg/integrations/crates"
)

// Registry ranks crates by all-time downloads on crates.io.
type Registry struct {
	client  *crates.Client
	refresh bool
}

// NewRegistry wraps a crates.io client. With refresh set, cached listing
// pages are ignored and re-fetched.
func NewRegistry(client *crates.Client, refresh bool) *Registry {
	return &Registry{client: client, refresh: refresh}
}

// Fetch walks the listing page by page until limit usable crates are found
// or the registry runs out.
func (r *Registry) Fetch(ctx context.Context, limit int) ([]Package, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}

	perPage := min(limit, crates.MaxPerPage)
	var pkgs []Package
	for page := 1; len(pkgs) < limit; page++ {
		res, err := r.client.TopCrates(ctx, crates.TopOptions{
			Sort:    crates.SortDownloads,
			PerPage: perPage,
			Page:    page,
		}, r.refresh)
		if err != nil {
			return nil, unavailable(err, "crates.io")
		}
		for _, info := range res.Crates {
			if p, ok := fromInfo(info); ok {
				pkgs = append(pkgs, p)
			}
		}
		if len(res.Crates) < perPage || page*perPage >= res.Total {
			break
		}
	}
	return Normalize(pkgs, limit), nil
}

// Describe fetches metadata for a single crate.
func (r *Registry) Describe(ctx context.Context, name string) (Package, bool, error) {
	info, err := r.client.FetchCrate(ctx, name, r.refresh)
	if errors.Is(err, integrations.ErrNotFound) {
		return Package{}, false, nil
	}
	if err != nil {
		return Package{}, false, unavailable(err, "crates.io")
	}
	p, _ := fromInfo(*info)
	return p, true, nil
}

func fromInfo(info crates.CrateInfo) (Package, bool) {
	version, ok := LatestVersion(info.MaxStableVersion, info.MaxVersion)
	return Package{
		Name:          info.Name,
		Version:       version,
		Downloads:     info.Downloads,
		Description:   strings.TrimSpace(info.Description),
		Documentation: info.Documentation,
		Repository:    info.Repository,
	}, ok
}

// LatestVersion picks the version to depend on: the newest stable release,
// or the newest release at all when it is not a prerelease. ok is false when
// the crate has only prereleases.
func LatestVersion(maxStable, maxVersion string) (string, bool) {
	if maxStable != "" {
		return maxStable, true
	}
	v := "v" + strings.TrimPrefix(maxVersion, "v")
	if maxVersion == "" || !semver.IsValid(v) || semver.Prerelease(v) != "" {
		return "", false
	}
	return maxVersion, true
}
