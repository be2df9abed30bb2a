// Package crates provides an HTTP client for the crates.io API.
//
// # Overview
//
// Two endpoints are used:
//
//   - GET /crates?sort=downloads&per_page=N&page=P: the popularity listing
//     that seeds the playground's crate set ([Client.TopCrates])
//   - GET /crates/{name}: metadata for a single crate, used to describe
//     crates that were added by hand ([Client.FetchCrate])
//
// # Usage
//
//	client := crates.NewClient(cache.NewNullCache(), 24*time.Hour)
//	page, err := client.TopCrates(ctx, crates.TopOptions{PerPage: 100}, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, c := range page.Crates {
//	    fmt.Println(c.Name, c.MaxStableVersion, c.Downloads)
//	}
//
// # Caching
//
// Responses are cached to reduce load on crates.io. The cache TTL is set
// when creating the client. Pass refresh=true to bypass the cache.
//
// # User-Agent
//
// crates.io's crawler policy requires a User-Agent identifying the client;
// [DefaultUserAgent] is sent unless another is configured.
package crates
