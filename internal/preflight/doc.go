// Package preflight provides readiness checks for the servers and
// filesystem paths a migration depends on.
//
// The CLI "jellymigrate check" command runs RunAll before a first migration:
// Jellyfin API key and admin login, Plex reachability, and access to the
// state directory and both servers' metadata directories on this host.
// Checks for unconfigured servers are skipped.
package preflight
