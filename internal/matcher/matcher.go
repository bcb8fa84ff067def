package matcher

import (
	"context"
	"log/slog"
	"strings"

	"jellymigrate/internal/catalog"
	"jellymigrate/internal/logging"
	"jellymigrate/internal/services/jellyfin"
	"jellymigrate/internal/textutil"
)

// Searcher runs a keyword search on the destination server and returns hints
// in rank order.
type Searcher interface {
	Search(ctx context.Context, term string) ([]jellyfin.SearchHint, error)
}

// Matcher finds destination entities by title.
type Matcher struct {
	searcher Searcher
	logger   *slog.Logger
}

// New builds a Matcher on top of searcher.
func New(searcher Searcher, logger *slog.Logger) *Matcher {
	return &Matcher{
		searcher: searcher,
		logger:   logging.NewComponentLogger(logger, "matcher"),
	}
}

// FindCounterpart searches for title and returns the first hint. A blank
// title, an empty result list, or a failed search all report no match; search
// failures are logged here and never returned.
func (m *Matcher) FindCounterpart(ctx context.Context, title string) (catalog.Entity, bool) {
	title = textutil.NormalizeTitle(title)
	if title == "" {
		return catalog.Entity{}, false
	}

	logger := logging.WithContext(ctx, m.logger).With(logging.String(logging.FieldTitle, title))
	hints, err := m.searcher.Search(ctx, title)
	if err != nil {
		logging.WarnWithContext(logger, "search failed", "search_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "item treated as unmatched"),
		)
		return catalog.Entity{}, false
	}
	if len(hints) == 0 {
		logger.Info("no counterpart found")
		return catalog.Entity{}, false
	}

	first := hints[0]
	entity := catalog.Entity{
		ID:   first.ID(),
		Kind: kindFromType(first.Type),
		Name: first.Name,
		Year: first.ProductionYear,
	}
	if !entity.Valid() {
		logger.Warn("first search hint has no id", logging.String("hint", first.Name))
		return catalog.Entity{}, false
	}
	logger.Debug("counterpart found",
		logging.String("match_id", entity.ID),
		logging.String("match_name", entity.Name),
		logging.Int("candidates", len(hints)),
		logging.Float64("similarity", textutil.Similarity(title, matchLabel(first))),
	)
	return entity, true
}

// kindFromType maps Jellyfin item types onto catalog kinds.
func kindFromType(itemType string) catalog.Kind {
	switch strings.ToLower(itemType) {
	case "movie":
		return catalog.KindMovie
	case "series":
		return catalog.KindShow
	case "season":
		return catalog.KindSeason
	case "episode":
		return catalog.KindEpisode
	case "musicartist":
		return catalog.KindArtist
	case "musicalbum":
		return catalog.KindAlbum
	case "audio":
		return catalog.KindTrack
	default:
		return ""
	}
}

func matchLabel(h jellyfin.SearchHint) string {
	parts := []string{h.AlbumArtist, h.Series, h.Album, h.Name}
	label := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			label = append(label, p)
		}
	}
	return strings.Join(label, " ")
}
