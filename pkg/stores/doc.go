// Package stores provides the persistence layer for evaluation
// history. It includes SQLite-based storage with WAL mode, connection
// pooling, and CRUD operations for evaluation runs, per-node outcomes,
// and analysis diagnostics.
package stores
