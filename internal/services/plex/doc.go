// Package plex reads the source catalog from a Plex Media Server.
//
// The client walks library sections and their children, lists playlists and
// their items, and asks plex.tv which accounts share the configured server.
// Everything it returns is expressed as catalog entities so the migration
// code never sees Plex wire types.
package plex
