package preflight

import (
	"context"
	"path"

	"jellymigrate/internal/assets"
	"jellymigrate/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Targets holds the clients to probe. Nil entries are skipped.
type Targets struct {
	Jellyfin       JellyfinProbe
	SourceJellyfin JellyfinProbe
	Plex           PlexProbe
}

// RunAll executes every applicable check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir, ReadWrite))

	if targets.Jellyfin != nil {
		results = append(results, CheckJellyfinAPIKey(ctx, "Jellyfin API key", targets.Jellyfin))
		results = append(results, CheckJellyfinLogin(ctx, "Jellyfin admin login", targets.Jellyfin))
	}
	if targets.SourceJellyfin != nil {
		results = append(results, CheckJellyfinAPIKey(ctx, "Source Jellyfin API key", targets.SourceJellyfin))
	}
	if targets.Plex != nil {
		results = append(results, CheckPlex(ctx, targets.Plex))
	}

	// Images are read from Plex and written into Jellyfin's metadata tree.
	translator := assets.NewTranslator(cfg.Assets.Translations)
	if cfg.Assets.PlexAppData != "" {
		dir := translator.ToHost(assets.SystemPlex, assets.CategoryAppData, cfg.Assets.PlexAppData)
		results = append(results, CheckDirectoryAccess("Plex app data", dir, ReadOnly))
	}
	if cfg.Assets.JellyfinAppData != "" {
		app := path.Join(cfg.Assets.JellyfinAppData, cfg.Assets.JellyfinMetadata)
		dir := translator.ToHost(assets.SystemJellyfin, assets.CategoryAppData, app)
		results = append(results, CheckDirectoryAccess("Jellyfin metadata", dir, ReadWrite))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
