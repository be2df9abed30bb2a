// Package integrations provides HTTP clients for package registry APIs.
//
// The [Client] type carries the shared plumbing: default headers, JSON
// decoding, response caching through [cache.Cache], retry of transient
// failures, and [observability] HTTP/cache events. Registry-specific
// clients live in subpackages:
//
//   - [crates]: crates.io, the Rust package registry
//
// # Client Pattern
//
//	client := crates.NewClient(backend, 24*time.Hour)
//	page, err := client.TopCrates(ctx, crates.TopOptions{PerPage: 100, Page: 1}, false)
//
// Errors are classified with [ErrNotFound] and [ErrNetwork]; transient
// failures (transport errors, 429, 5xx) are additionally wrapped with
// [cache.Retryable] so [Client.Cached] retries them.
//
// [crates]: github.com/matzehuels/topcrates/pkg/integrations/crates
// [cache.Cache]: github.com/matzehuels/topcrates/pkg/cache.Cache
// [cache.Retryable]: github.com/matzehuels/topcrates/pkg/cache.Retryable
// [observability]: github.com/matzehuels/topcrates/pkg/observability
package integrations
