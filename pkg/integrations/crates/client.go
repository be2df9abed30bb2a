package crates

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/matzehuels/topcrates/pkg/cache"
	"github.com/matzehuels/topcrates/pkg/integrations"
)

// DefaultBaseURL is the crates.io API root.
const DefaultBaseURL = "https://crates.io/api/v1"

// DefaultUserAgent identifies this tool to crates.io, which rejects
// requests without a User-Agent.
const DefaultUserAgent = "topcrates/1.0 (https://github.com/matzehuels/topcrates)"

// MaxPerPage is the largest page size crates.io accepts.
const MaxPerPage = 100

// Sort orders accepted by the crates listing endpoint.
const (
	SortDownloads       = "downloads"
	SortRecentDownloads = "recent-downloads"
)

// CrateInfo holds metadata for a Rust crate from crates.io.
//
// Zero values: all string fields may be empty except Name. Downloads is 0 for
// newly published crates.
type CrateInfo struct {
	Name             string `json:"name"`
	MaxVersion       string `json:"max_version"`
	MaxStableVersion string `json:"max_stable_version,omitempty"`
	Description      string `json:"description,omitempty"`
	Documentation    string `json:"documentation,omitempty"`
	Repository       string `json:"repository,omitempty"`
	HomePage         string `json:"homepage,omitempty"`
	Downloads        int64  `json:"downloads"`
	RecentDownloads  int64  `json:"recent_downloads,omitempty"`
}

// TopOptions selects one page of the popularity listing.
type TopOptions struct {
	Sort    string // SortDownloads (default) or SortRecentDownloads
	PerPage int    // 1..MaxPerPage, default MaxPerPage
	Page    int    // 1-based, default 1
}

func (o TopOptions) withDefaults() TopOptions {
	if o.Sort == "" {
		o.Sort = SortDownloads
	}
	if o.PerPage <= 0 || o.PerPage > MaxPerPage {
		o.PerPage = MaxPerPage
	}
	if o.Page <= 0 {
		o.Page = 1
	}
	return o
}

// TopPage is one page of the popularity listing, in registry order.
type TopPage struct {
	Crates []CrateInfo `json:"crates"`
	Total  int         `json:"total"`
}

// Client provides access to the crates.io package registry API.
// It handles HTTP requests with caching and automatic retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a crates.io client with the given cache backend.
// Pass cache.NewNullCache() (or nil) to disable caching.
func NewClient(backend cache.Cache, cacheTTL time.Duration, opts ...integrations.ClientOption) *Client {
	return NewClientWithURL(backend, cacheTTL, DefaultBaseURL, DefaultUserAgent, opts...)
}

// NewClientWithURL creates a client against a mirror or test server.
func NewClientWithURL(backend cache.Cache, cacheTTL time.Duration, baseURL, userAgent string, opts ...integrations.ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	headers := map[string]string{"User-Agent": userAgent}
	return &Client{
		Client:  integrations.NewClient(backend, "crates", cacheTTL, headers, opts...),
		baseURL: baseURL,
	}
}

// TopCrates retrieves one page of crates ordered by the requested sort.
//
// If refresh is true, the cache is bypassed.
//
// Returns:
//   - [integrations.ErrNetwork] for HTTP failures (timeout, 5xx, etc.)
//   - Other errors for JSON decoding failures
func (c *Client) TopCrates(ctx context.Context, opts TopOptions, refresh bool) (*TopPage, error) {
	opts = opts.withDefaults()
	key := cache.RequestKey("top", c.baseURL, opts.Sort, opts.PerPage, opts.Page)

	var page TopPage
	err := c.Cached(ctx, key, refresh, &page, func() error {
		return c.fetchTop(ctx, opts, &page)
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) fetchTop(ctx context.Context, opts TopOptions, page *TopPage) error {
	q := url.Values{}
	q.Set("sort", opts.Sort)
	q.Set("per_page", strconv.Itoa(opts.PerPage))
	q.Set("page", strconv.Itoa(opts.Page))

	var data listResponse
	if err := c.Get(ctx, c.baseURL+"/crates?"+q.Encode(), &data); err != nil {
		return err
	}

	*page = TopPage{Crates: make([]CrateInfo, 0, len(data.Crates)), Total: data.Meta.Total}
	for _, cr := range data.Crates {
		page.Crates = append(page.Crates, cr.info())
	}
	return nil
}

// FetchCrate retrieves metadata for a single crate.
//
// The crate parameter is case-sensitive and must match the published crate
// name exactly.
//
// Returns:
//   - [integrations.ErrNotFound] if the crate doesn't exist
//   - [integrations.ErrNetwork] for HTTP failures
//
// The returned CrateInfo pointer is never nil if err is nil.
func (c *Client) FetchCrate(ctx context.Context, crate string, refresh bool) (*CrateInfo, error) {
	var info CrateInfo
	err := c.Cached(ctx, cache.RequestKey("crate", c.baseURL, crate), refresh, &info, func() error {
		var data crateResponse
		if err := c.Get(ctx, fmt.Sprintf("%s/crates/%s", c.baseURL, url.PathEscape(crate)), &data); err != nil {
			if errors.Is(err, integrations.ErrNotFound) {
				return fmt.Errorf("%w: crate %s", err, crate)
			}
			return err
		}
		info = data.Crate.info()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

type crateRecord struct {
	Name             string `json:"name"`
	MaxVersion       string `json:"max_version"`
	MaxStableVersion string `json:"max_stable_version"`
	Description      string `json:"description"`
	Documentation    string `json:"documentation"`
	Repository       string `json:"repository"`
	HomePage         string `json:"homepage"`
	Downloads        int64  `json:"downloads"`
	RecentDownloads  int64  `json:"recent_downloads"`
}

func (r crateRecord) info() CrateInfo {
	return CrateInfo{
		Name:             r.Name,
		MaxVersion:       r.MaxVersion,
		MaxStableVersion: r.MaxStableVersion,
		Description:      r.Description,
		Documentation:    r.Documentation,
		Repository:       integrations.NormalizeRepoURL(r.Repository),
		HomePage:         r.HomePage,
		Downloads:        r.Downloads,
		RecentDownloads:  r.RecentDownloads,
	}
}

type listResponse struct {
	Crates []crateRecord `json:"crates"`
	Meta   struct {
		Total int `json:"total"`
	} `json:"meta"`
}

type crateResponse struct {
	Crate crateRecord `json:"crate"`
}
