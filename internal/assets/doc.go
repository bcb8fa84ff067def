// Package assets locates poster and backdrop files on disk and copies them
// from the Plex metadata store into the Jellyfin one.
//
// Both servers derive image locations from item identifiers: Plex shards a
// SHA-1 of the item GUID into bundle directories, Jellyfin shards its item id
// by the first two characters. Paths are built as the servers see them and
// then translated to the host running the migration, which matters when the
// servers run in containers with their own mount points.
package assets
