// Package storage persists chunk documents and project metadata in SQLite
// and serves similarity search over stored embeddings.
//
// Two database drivers are supported via build tags: the default build uses
// modernc.org/sqlite (pure Go, no cgo required), while the cgo_sqlite tag
// selects mattn/go-sqlite3.
package storage
