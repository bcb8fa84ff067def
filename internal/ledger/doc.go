// Package ledger records migration runs and per-item outcomes in SQLite.
//
// Every command invocation opens a run; each entity the orchestrator touches
// adds one outcome row. The history command reads the ledger back so an
// operator can see what a previous run migrated, skipped or failed.
package ledger
