// Package types defines the shared domain types of the indexing pipeline:
// chunk documents as persisted in the vector store, the per-file fingerprints
// used for change detection, delta-run statistics, and search results.
//
// The package is dependency-free so it can be imported by every layer,
// including adapters and external tooling.
package types
