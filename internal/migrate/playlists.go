package migrate

import (
	"context"
	"fmt"

	"jellymigrate/internal/ledger"
	"jellymigrate/internal/logging"
	"jellymigrate/internal/services/plex"
)

// Playlists recreates every Plex playlist on Jellyfin. Each entry is matched
// by title and every matched id is added to the new playlist in one call.
func (o *Orchestrator) Playlists(ctx context.Context) (*Report, error) {
	ctx, r := o.start(ctx, "playlists")
	return r.finish(ctx, o.playlists(ctx, r))
}

func (o *Orchestrator) playlists(ctx context.Context, r *run) error {
	if err := o.authenticate(ctx); err != nil {
		return err
	}
	playlists, err := o.source.Playlists(ctx)
	if err != nil {
		return fmt.Errorf("list plex playlists: %w", err)
	}
	r.expect(len(playlists))
	return forEach(ctx, o.opts.Workers, playlists, func(ctx context.Context, p plex.Playlist) error {
		return o.playlist(ctx, r, p)
	})
}

func (o *Orchestrator) playlist(ctx context.Context, r *run, p plex.Playlist) error {
	result := Result{Kind: KindPlaylist, Title: p.Title, SourceID: p.Key}

	items, err := o.source.PlaylistItems(ctx, p)
	if err != nil {
		if fatal(err) {
			return err
		}
		result.Status = ledger.StatusFailed
		result.Err = err
		result.Detail = "list plex items"
		r.record(ctx, result)
		return nil
	}

	var playlistID string
	if !o.opts.DryRun {
		playlistID, err = o.dest.CreatePlaylist(ctx, p.Title)
		if err != nil {
			if fatal(err) {
				return err
			}
			result.Status = ledger.StatusFailed
			result.Err = err
			r.record(ctx, result)
			return nil
		}
		result.DestinationID = playlistID
	}

	logger := r.logger.With(logging.String("playlist", p.Title))
	ids := make([]string, 0, len(items))
	matched := make([]Result, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry := Result{Kind: item.Kind, Title: item.Name, SourceID: item.ID}
		dst, ok := o.matcher.FindCounterpart(ctx, item.Name)
		if !ok {
			entry.Status = ledger.StatusUnmatched
			entry.Detail = "playlist " + p.Title
			r.record(ctx, entry)
			continue
		}
		logger.Debug("playlist entry matched",
			logging.String(logging.FieldTitle, item.Name),
			logging.String("match_name", dst.Name),
		)
		entry.DestinationID = dst.ID
		ids = append(ids, dst.ID)
		matched = append(matched, entry)
	}

	result.Detail = fmt.Sprintf("%d of %d entries matched", len(ids), len(items))
	if o.opts.DryRun {
		result.Status = ledger.StatusSkipped
		result.Detail = "dry run: " + result.Detail
		r.record(ctx, result)
		return nil
	}

	addErr := o.dest.AddToPlaylist(ctx, playlistID, ids)
	if addErr != nil && fatal(addErr) {
		return addErr
	}
	for _, entry := range matched {
		entry.Detail = "playlist " + p.Title
		if addErr != nil {
			entry.Status = ledger.StatusFailed
			entry.Err = addErr
		} else {
			entry.Status = ledger.StatusMigrated
		}
		r.record(ctx, entry)
	}
	if addErr != nil {
		result.Status = ledger.StatusFailed
		result.Err = addErr
	} else {
		result.Status = ledger.StatusMigrated
	}
	r.record(ctx, result)
	return nil
}
