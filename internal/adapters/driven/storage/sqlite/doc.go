// Package sqlite stores execution records and scheduler state in a single
// SQLite file using the pure Go modernc.org/sqlite driver, so the binary
// builds without cgo.
//
// The schema lives in migrations/ as NNN_name.up.sql and .down.sql pairs
// embedded into the binary. NewStore applies every up migration newer than
// the highest version in schema_migrations.
//
// The default database is ~/.mailbrain/data/mailbrain.db. Connections run
// in WAL mode with immediate transactions, and execution writes are also
// serialised in-process.
package sqlite
