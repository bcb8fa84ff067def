package plex

import (
	"context"
	"net/url"
	"strings"
	"time"

	"jellymigrate/internal/catalog"
)

// Section is a library section.
type Section struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// Library returns the migration library group of the section: movies, shows
// or music. Other section types return "".
func (s Section) Library() string {
	switch s.Type {
	case "movie":
		return "movies"
	case "show":
		return "shows"
	case "artist":
		return "music"
	default:
		return ""
	}
}

// Playlist is a Plex playlist header.
type Playlist struct {
	Key      string
	Title    string
	Type     string
	Duration time.Duration
}

type mediaContainer struct {
	MediaContainer struct {
		Directory []Section  `json:"Directory"`
		Metadata  []metadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

type metadata struct {
	RatingKey        string  `json:"ratingKey"`
	GUID             string  `json:"guid"`
	Type             string  `json:"type"`
	Title            string  `json:"title"`
	ParentTitle      string  `json:"parentTitle"`
	GrandparentTitle string  `json:"grandparentTitle"`
	Index            int     `json:"index"`
	ParentIndex      int     `json:"parentIndex"`
	Year             int     `json:"year"`
	ParentYear       int     `json:"parentYear"`
	Duration         int64   `json:"duration"`
	UserRating       float64 `json:"userRating"`
	PlaylistType     string  `json:"playlistType"`
	Media            []struct {
		Part []struct {
			File string `json:"file"`
		} `json:"Part"`
	} `json:"Media"`
}

func (m metadata) entity() (catalog.Entity, bool) {
	kind, ok := catalog.ParseKind(m.Type)
	if !ok {
		return catalog.Entity{}, false
	}
	year := m.Year
	if year == 0 {
		year = m.ParentYear
	}
	var locations []string
	for _, media := range m.Media {
		for _, part := range media.Part {
			if part.File != "" {
				locations = append(locations, part.File)
			}
		}
	}
	return catalog.Entity{
		ID:               m.GUID,
		Kind:             kind,
		Name:             m.Title,
		Key:              m.RatingKey,
		Year:             year,
		Index:            m.Index,
		ParentIndex:      m.ParentIndex,
		ParentTitle:      m.ParentTitle,
		GrandparentTitle: m.GrandparentTitle,
		Duration:         time.Duration(m.Duration) * time.Millisecond,
		UserRating:       m.UserRating,
		Locations:        locations,
	}, true
}

func (c *Client) entities(ctx context.Context, path string) ([]catalog.Entity, error) {
	var container mediaContainer
	if err := c.getJSON(ctx, path, &container); err != nil {
		return nil, err
	}
	out := make([]catalog.Entity, 0, len(container.MediaContainer.Metadata))
	for _, m := range container.MediaContainer.Metadata {
		entity, ok := m.entity()
		if !ok {
			c.logger.Debug("skipping unsupported plex item", "type", m.Type, "title", m.Title)
			continue
		}
		out = append(out, entity)
	}
	return out, nil
}

// Sections lists the library sections of the server.
func (c *Client) Sections(ctx context.Context) ([]Section, error) {
	var container mediaContainer
	if err := c.getJSON(ctx, "/library/sections", &container); err != nil {
		return nil, err
	}
	return container.MediaContainer.Directory, nil
}

// Items lists the top-level items of a section: movies, shows or artists.
func (c *Client) Items(ctx context.Context, sectionKey string) ([]catalog.Entity, error) {
	return c.entities(ctx, "/library/sections/"+url.PathEscape(sectionKey)+"/all")
}

// Children lists the direct children of an item: seasons of a show,
// episodes of a season, albums of an artist.
func (c *Client) Children(ctx context.Context, parent catalog.Entity) ([]catalog.Entity, error) {
	return c.entities(ctx, "/library/metadata/"+url.PathEscape(parent.Key)+"/children")
}

// Tracks lists every track of an artist.
func (c *Client) Tracks(ctx context.Context, artist catalog.Entity) ([]catalog.Entity, error) {
	return c.entities(ctx, "/library/metadata/"+url.PathEscape(artist.Key)+"/allLeaves")
}

// Playlists lists the playlists visible to the configured token.
func (c *Client) Playlists(ctx context.Context) ([]Playlist, error) {
	var container mediaContainer
	if err := c.getJSON(ctx, "/playlists", &container); err != nil {
		return nil, err
	}
	out := make([]Playlist, 0, len(container.MediaContainer.Metadata))
	for _, m := range container.MediaContainer.Metadata {
		if strings.TrimSpace(m.Title) == "" {
			continue
		}
		out = append(out, Playlist{
			Key:      m.RatingKey,
			Title:    m.Title,
			Type:     m.PlaylistType,
			Duration: time.Duration(m.Duration) * time.Millisecond,
		})
	}
	return out, nil
}

// PlaylistItems lists the entries of a playlist in playlist order.
func (c *Client) PlaylistItems(ctx context.Context, playlist Playlist) ([]catalog.Entity, error) {
	return c.entities(ctx, "/playlists/"+url.PathEscape(playlist.Key)+"/items")
}
