// Package pkg provides the libraries behind topcrates, the generator for the
// Rust playground's crate manifest.
//
// # Overview
//
// The playground compiles user code against a fixed set of crates: the most
// downloaded crates on crates.io, adjusted by a curated rule file. The pkg
// directory is organized by pipeline stage:
//
//  1. [overrides] - Parse and validate crate-modifications.toml
//  2. [ranking] - Fetch the popularity ranking (crates.io or a snapshot)
//  3. [resolve] - Merge the ranking with the rules into the final crate set
//  4. [manifest] - Build the Cargo.toml document and crate information list
//  5. [emit] - Serialize both documents and write them together
//
// [pipeline] runs the stages in order. Supporting packages:
//
//   - [integrations] - HTTP client plumbing and the crates.io API client
//   - [cache] - File and Redis response caches with retry helpers
//   - [errors] - Coded errors shared by all stages
//   - [observability] - Hooks for stage, cache and HTTP events
//   - [buildinfo] - Version information set at build time
//
// # Data Flow
//
//	crate-modifications.toml      crates.io /crates?sort=downloads
//	         ↓                               ↓
//	    [overrides]                      [ranking]
//	         └──────────────┬────────────────┘
//	                    [resolve]
//	                        ↓
//	                   [manifest]
//	                        ↓
//	                     [emit]
//	                        ↓
//	      Cargo.toml + crate-information.json
//
// # Quick Start
//
//	runner := pipeline.NewRunner(ranking.Static{
//	    {Name: "serde", Version: "1.0.195", Downloads: 500},
//	}, nil)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Modifications: "crate-modifications.toml",
//	    OutputDir:     "../compiler/base",
//	})
//
// [overrides]: github.com/matzehuels/topcrates/pkg/overrides
// [ranking]: github.com/matzehuels/topcrates/pkg/ranking
// [resolve]: github.com/matzehuels/topcrates/pkg/resolve
// [manifest]: github.com/matzehuels/topcrates/pkg/manifest
// [emit]: github.com/matzehuels/topcrates/pkg/emit
// [pipeline]: github.com/matzehuels/topcrates/pkg/pipeline
// [integrations]: github.com/matzehuels/topcrates/pkg/integrations
// [cache]: github.com/matzehuels/topcrates/pkg/cache
// [errors]: github.com/matzehuels/topcrates/pkg/errors
// [observability]: github.com/matzehuels/topcrates/pkg/observability
// [buildinfo]: github.com/matzehuels/topcrates/pkg/buildinfo
package pkg
