// Package services defines shared utilities consumed by the migration
// orchestrator and the server integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and operation names for
//     logging and ledger records.
//   - Structured error markers plus the Wrap helper that classify failures
//     as authentication, transport, not-found, or unexpected so callers can
//     decide between skip-and-continue and aborting a server's operations.
//
// Use these helpers when wiring new integrations so error handling and
// observability stay uniform across the migration commands.
package services
