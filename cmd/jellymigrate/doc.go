// Package main hosts the jellymigrate CLI entrypoint and command graph.
//
// Each migration command loads the configuration once, builds the Plex and
// Jellyfin clients, and hands them to the migrate orchestrator. Results come
// back as a report that is rendered as a table, optionally with the
// credentials of created accounts. Run outcomes are kept in the ledger and
// browsed with the history command, and a summary is published to ntfy when
// a topic is configured. The check command verifies credentials and metadata
// directory access before a first run.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// only surfaced here through flags and output formatting.
package main
