package catalog

import (
	"strings"
	"time"
)

// Kind identifies the library item type an entity represents.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindShow    Kind = "show"
	KindSeason  Kind = "season"
	KindEpisode Kind = "episode"
	KindArtist  Kind = "artist"
	KindAlbum   Kind = "album"
	KindTrack   Kind = "track"
)

// Kinds lists every supported kind in library traversal order.
var Kinds = []Kind{KindMovie, KindShow, KindSeason, KindEpisode, KindArtist, KindAlbum, KindTrack}

// ParseKind converts a free-form value into a Kind.
func ParseKind(value string) (Kind, bool) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(value)))
	for _, k := range Kinds {
		if k == normalized {
			return k, true
		}
	}
	return "", false
}

// Entity is a catalog item as seen by one system. ID is opaque and has no
// meaning outside the system that produced it.
type Entity struct {
	ID   string
	Kind Kind
	Name string

	// Key is a catalog-local navigation key (for example a Plex rating key)
	// used to fetch children. Empty for destination entities.
	Key string

	Year             int
	Index            int
	ParentIndex      int
	ParentTitle      string
	GrandparentTitle string
	Duration         time.Duration
	UserRating       float64
	Locations        []string
}

// Valid reports whether the entity carries an identifier.
func (e Entity) Valid() bool {
	return strings.TrimSpace(e.ID) != ""
}

// Category names an image slot on disk.
type Category string

const (
	CategoryPoster   Category = "poster"
	CategoryBackdrop Category = "backdrop"
)

// Categories lists image slots in copy order.
var Categories = []Category{CategoryPoster, CategoryBackdrop}

// AssetPath pairs the source and destination file for one image slot.
// Source is empty when the source system holds no file for the slot.
type AssetPath struct {
	Category    Category
	Source      string
	Destination string
}
