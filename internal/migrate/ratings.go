package migrate

import (
	"context"
	"fmt"

	"jellymigrate/internal/catalog"
	"jellymigrate/internal/ledger"
	"jellymigrate/internal/logging"
)

// Ratings copies Plex user ratings of movies and music tracks to Jellyfin as
// likes or dislikes. Ratings below the upvote threshold become dislikes;
// unrated items are skipped.
func (o *Orchestrator) Ratings(ctx context.Context) (*Report, error) {
	ctx, r := o.start(ctx, "ratings")
	return r.finish(ctx, o.ratings(ctx, r))
}

func (o *Orchestrator) ratings(ctx context.Context, r *run) error {
	if err := o.authenticate(ctx); err != nil {
		return err
	}
	sections, err := o.source.Sections(ctx)
	if err != nil {
		return fmt.Errorf("list plex sections: %w", err)
	}

	for _, section := range sections {
		if !wantLibrary(o.opts.Libraries, section) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		var rated []catalog.Entity
		switch section.Type {
		case "movie":
			items, err := o.source.Items(ctx, section.Key)
			if err != nil {
				o.warnSection(r, section.Title, err)
				continue
			}
			rated = collectRated(r, items)
		case "artist":
			artists, err := o.source.Items(ctx, section.Key)
			if err != nil {
				o.warnSection(r, section.Title, err)
				continue
			}
			for _, artist := range artists {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				tracks, err := o.source.Tracks(ctx, artist)
				if err != nil {
					logging.WarnWithContext(r.logger, "plex track listing failed", "tracks_list_failed",
						logging.String(logging.FieldTitle, artist.Name),
						logging.Error(err),
						logging.String(logging.FieldImpact, "artist tracks skipped"),
					)
					continue
				}
				rated = append(rated, collectRated(r, tracks)...)
			}
		default:
			continue
		}

		r.logger.Info("migrating section ratings",
			logging.String("section", section.Title),
			logging.Int("rated", len(rated)),
		)
		r.expect(len(rated))
		if err := forEach(ctx, o.opts.Workers, rated, func(ctx context.Context, item catalog.Entity) error {
			return o.rateItem(ctx, r, item)
		}); err != nil {
			return err
		}
	}
	return nil
}

// collectRated keeps items that carry a user rating.
func collectRated(r *run, items []catalog.Entity) []catalog.Entity {
	out := make([]catalog.Entity, 0, len(items))
	unrated := 0
	for _, item := range items {
		if item.UserRating > 0 {
			out = append(out, item)
			continue
		}
		unrated++
	}
	if unrated > 0 {
		r.logger.Debug("unrated items skipped", logging.Int("count", unrated))
	}
	return out
}

func (o *Orchestrator) warnSection(r *run, title string, err error) {
	logging.WarnWithContext(r.logger, "plex section listing failed", "section_list_failed",
		logging.String("section", title),
		logging.Error(err),
		logging.String(logging.FieldImpact, "section skipped"),
	)
}

// Like reports whether rating becomes a like at threshold.
func Like(rating, threshold float64) bool {
	return rating >= threshold
}

func (o *Orchestrator) rateItem(ctx context.Context, r *run, src catalog.Entity) error {
	like := Like(src.UserRating, o.opts.UpvoteThreshold)
	result := Result{Kind: src.Kind, Title: src.Name, SourceID: src.ID, Detail: verdict(like, src.UserRating)}

	// Ratings match on the bare item title, not the canonical title.
	dst, ok := o.matcher.FindCounterpart(ctx, src.Name)
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		result.Status = ledger.StatusUnmatched
		r.record(ctx, result)
		return nil
	}
	result.DestinationID = dst.ID

	if o.opts.DryRun {
		result.Status = ledger.StatusSkipped
		result.Detail = "dry run: " + result.Detail
		r.record(ctx, result)
		return nil
	}

	if err := o.dest.UpdateRating(ctx, dst.ID, like); err != nil {
		if fatal(err) {
			return err
		}
		result.Status = ledger.StatusFailed
		result.Err = err
		r.record(ctx, result)
		return nil
	}
	result.Status = ledger.StatusMigrated
	r.record(ctx, result)
	return nil
}

func verdict(like bool, rating float64) string {
	if like {
		return fmt.Sprintf("like (%.1f)", rating)
	}
	return fmt.Sprintf("dislike (%.1f)", rating)
}
