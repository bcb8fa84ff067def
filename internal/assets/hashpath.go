package assets

import (
	"crypto/sha1"
	"encoding/hex"
)

// SourceShard returns the Plex bundle shard for a source identifier: the
// first hex digit of its SHA-1 and the remaining 39 digits.
func SourceShard(id string) (shard, suffix string) {
	sum := sha1.Sum([]byte(id))
	digest := hex.EncodeToString(sum[:])
	return digest[:1], digest[1:]
}

// SourceBundle returns "<shard>/<suffix>.bundle" for a source identifier.
func SourceBundle(id string) string {
	shard, suffix := SourceShard(id)
	return shard + "/" + suffix + ".bundle"
}

// DestinationDir returns "<id[:2]>/<id>" for a Jellyfin item id.
func DestinationDir(id string) string {
	prefix := id
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return prefix + "/" + id
}
