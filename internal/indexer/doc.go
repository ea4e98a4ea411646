// Package indexer orchestrates indexing runs end to end: directory
// enumeration, change detection, chunking, embedding, and document store
// reconciliation, with milestone progress reporting throughout.
package indexer
