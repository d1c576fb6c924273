// Package sqlite stores the passages of an indexed document in a SQLite file.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Each cache directory holds one
// passages.db whose rows line up with the vectors in the sibling index file:
// the passage at row_index i belongs to vector i.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Thread Safety
//
// A PassageStore is safe for concurrent reads. Writes happen once per build
// inside a single transaction.
package sqlite
