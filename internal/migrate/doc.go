// Package migrate drives the per-item migration operations: posters,
// ratings, playlists, user accounts and playlist export.
//
// Every operation walks the source catalog, resolves each entity on the
// destination, applies one change and records the outcome. A failure on one
// item is logged, tallied and skipped; only authentication failures against
// a whole server abort the remaining work. Items run on a bounded worker pool
// sized by migration.workers and cancellation is observed between items.
package migrate
