// Package runstore keeps the render ledger: one SQLite row per render
// invocation recording the stage reached, the artifacts written, any
// warnings, and the classified error when the run failed.
//
// The schema is embedded and versioned. A database written by a different
// schema version is rejected with ErrSchemaMismatch; the ledger is history
// only, so the fix is to delete the file.
package runstore
