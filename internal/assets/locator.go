package assets

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"jellymigrate/internal/catalog"
	"jellymigrate/internal/config"
	"jellymigrate/internal/fileutil"
	"jellymigrate/internal/logging"
)

// Plex keeps posters and backdrops under these bundle subdirectories.
var sourceImageDirs = map[catalog.Category]string{
	catalog.CategoryPoster:   "posters",
	catalog.CategoryBackdrop: "art",
}

// Locator resolves and copies image files for matched entity pairs.
type Locator struct {
	translator      *Translator
	plexAppData     string
	jellyfinAppData string
	plexRoots       map[catalog.Kind]string
	jellyfinRoot    string
	logger          *slog.Logger
}

// NewLocator builds a Locator from the assets configuration.
func NewLocator(cfg config.Assets, logger *slog.Logger) *Locator {
	roots := make(map[catalog.Kind]string, len(cfg.PlexMetadataDirs))
	for name, dir := range cfg.PlexMetadataDirs {
		if kind, ok := catalog.ParseKind(name); ok {
			roots[kind] = dir
		}
	}
	return &Locator{
		translator:      NewTranslator(cfg.Translations),
		plexAppData:     cfg.PlexAppData,
		jellyfinAppData: cfg.JellyfinAppData,
		plexRoots:       roots,
		jellyfinRoot:    cfg.JellyfinMetadata,
		logger:          logging.NewComponentLogger(logger, "assets"),
	}
}

// Translator exposes the path translation table.
func (l *Locator) Translator() *Translator {
	return l.translator
}

// SourceImageDir returns the host directory holding the Plex images of one
// category for src. It reports false for kinds without a metadata root.
func (l *Locator) SourceImageDir(src catalog.Entity, kind catalog.Kind, category catalog.Category) (string, bool) {
	root, ok := l.plexRoots[kind]
	if !ok {
		return "", false
	}
	sub, ok := sourceImageDirs[category]
	if !ok {
		return "", false
	}
	app := fmt.Sprintf("%s%s/%s/Contents/_stored/%s", l.plexAppData, root, SourceBundle(src.ID), sub)
	return l.translator.ToHost(SystemPlex, CategoryAppData, app), true
}

// SourceFile returns the full path of the first image file for category.
func (l *Locator) SourceFile(src catalog.Entity, kind catalog.Kind, category catalog.Category) (string, error) {
	dir, ok := l.SourceImageDir(src, kind, category)
	if !ok {
		return "", fmt.Errorf("no plex metadata root for kind %q", kind)
	}
	return fileutil.FirstRegularFile(dir)
}

// DestinationFile returns the host path Jellyfin reads the category image
// from for dst.
func (l *Locator) DestinationFile(dst catalog.Entity, category catalog.Category) string {
	app := fmt.Sprintf("%s%s/%s/%s.jpg", l.jellyfinAppData, l.jellyfinRoot, DestinationDir(dst.ID), category)
	return l.translator.ToHost(SystemJellyfin, CategoryAppData, app)
}

// Paths resolves every image slot for the pair. Source is empty when Plex has
// no file for the slot.
func (l *Locator) Paths(src, dst catalog.Entity, kind catalog.Kind) []catalog.AssetPath {
	out := make([]catalog.AssetPath, 0, len(catalog.Categories))
	for _, category := range catalog.Categories {
		path := catalog.AssetPath{Category: category, Destination: l.DestinationFile(dst, category)}
		if file, err := l.SourceFile(src, kind, category); err == nil {
			path.Source = file
		} else {
			l.logger.Debug("source image unavailable",
				logging.String("category", string(category)),
				logging.String("source_id", src.ID),
				logging.Error(err),
			)
		}
		out = append(out, path)
	}
	return out
}

// MigrateAssets copies the poster and backdrop of src onto dst. The result is
// true only when both slots were copied. A slot without a source file is a
// failed slot, but the other slot is still copied and not rolled back. With no
// source image at all nothing is attempted. Existing destination files are
// overwritten; the destination directory is never created. Failures are
// logged, never returned.
func (l *Locator) MigrateAssets(ctx context.Context, src, dst catalog.Entity, kind catalog.Kind) bool {
	logger := logging.WithContext(ctx, l.logger).With(
		logging.String(logging.FieldKind, string(kind)),
		logging.String("source_id", src.ID),
		logging.String("destination_id", dst.ID),
	)
	if !src.Valid() || !dst.Valid() {
		logger.Warn("asset migration skipped: missing identifier")
		return false
	}

	paths := l.Paths(src, dst, kind)
	available := 0
	for _, p := range paths {
		if p.Source != "" {
			available++
		}
	}
	if available == 0 {
		logger.Info("neither poster nor backdrop exists for this item")
		return false
	}

	success := true
	for _, p := range paths {
		if p.Source == "" {
			logging.WarnWithContext(logger, "source image missing", "asset_source_missing",
				logging.String("category", string(p.Category)),
				logging.String(logging.FieldErrorHint, "add the image in Plex or set it in Jellyfin manually"),
				logging.String(logging.FieldImpact, "item migrated partially"),
			)
			success = false
			continue
		}
		if dir := filepath.Dir(p.Destination); !fileutil.IsDir(dir) {
			logging.WarnWithContext(logger, "destination directory missing", "asset_destination_missing",
				logging.String("category", string(p.Category)),
				logging.String("directory", dir),
				logging.String(logging.FieldErrorHint, "let Jellyfin finish its library scan first"),
				logging.String(logging.FieldImpact, "image not migrated"),
			)
			success = false
			continue
		}
		if err := fileutil.CopyFile(p.Source, p.Destination); err != nil {
			logging.WarnWithContext(logger, "image copy failed", "asset_copy_failed",
				logging.String("category", string(p.Category)),
				logging.String("source", p.Source),
				logging.String("destination", p.Destination),
				logging.Error(err),
				logging.String(logging.FieldImpact, "image not migrated"),
			)
			success = false
			continue
		}
		logger.Debug("image copied",
			logging.String("category", string(p.Category)),
			logging.String("destination", p.Destination),
		)
	}

	return success
}
