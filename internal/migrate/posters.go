package migrate

import (
	"context"
	"fmt"

	"jellymigrate/internal/catalog"
	"jellymigrate/internal/ledger"
	"jellymigrate/internal/logging"
	"jellymigrate/internal/matcher"
	"jellymigrate/internal/services"
)

// Posters copies the poster and backdrop of every movie, show (with its
// seasons and episodes) and artist (with its albums) in the selected
// libraries. An empty selection falls back to the configured libraries.
func (o *Orchestrator) Posters(ctx context.Context, libraries []string) (*Report, error) {
	ctx, r := o.start(ctx, "posters")
	return r.finish(ctx, o.posters(ctx, r, libraries))
}

func (o *Orchestrator) posters(ctx context.Context, r *run, libraries []string) error {
	if o.assets == nil {
		return services.Wrap(services.ErrConfiguration, "migrate", "posters", "no asset locator configured", nil)
	}
	if len(libraries) == 0 {
		libraries = o.opts.Libraries
	}
	if err := o.authenticate(ctx); err != nil {
		return err
	}
	sections, err := o.source.Sections(ctx)
	if err != nil {
		return fmt.Errorf("list plex sections: %w", err)
	}

	for _, section := range sections {
		if !wantLibrary(libraries, section) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		items, err := o.source.Items(ctx, section.Key)
		if err != nil {
			logging.WarnWithContext(r.logger, "plex section listing failed", "section_list_failed",
				logging.String("section", section.Title),
				logging.Error(err),
				logging.String(logging.FieldImpact, "section skipped"),
			)
			continue
		}
		r.logger.Info("migrating section images",
			logging.String("section", section.Title),
			logging.String("library", section.Library()),
			logging.Int("items", len(items)),
		)
		r.expect(len(items))
		if err := forEach(ctx, o.opts.Workers, items, func(ctx context.Context, item catalog.Entity) error {
			return o.posterTree(ctx, r, item)
		}); err != nil {
			return err
		}
	}
	return nil
}

// posterTree migrates item and, for shows and artists, its descendants.
// Descendants run sequentially on the worker that owns the parent.
func (o *Orchestrator) posterTree(ctx context.Context, r *run, item catalog.Entity) error {
	if err := o.posterItem(ctx, r, item); err != nil {
		return err
	}
	switch item.Kind {
	case catalog.KindShow:
		seasons := o.children(ctx, r, item)
		for _, season := range seasons {
			if ctx.Err() != nil {
				return nil
			}
			if err := o.posterItem(ctx, r, season); err != nil {
				return err
			}
			for _, episode := range o.children(ctx, r, season) {
				if ctx.Err() != nil {
					return nil
				}
				if err := o.posterItem(ctx, r, episode); err != nil {
					return err
				}
			}
		}
	case catalog.KindArtist:
		for _, album := range o.children(ctx, r, item) {
			if ctx.Err() != nil {
				return nil
			}
			if err := o.posterItem(ctx, r, album); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) children(ctx context.Context, r *run, parent catalog.Entity) []catalog.Entity {
	children, err := o.source.Children(ctx, parent)
	if err != nil {
		logging.WarnWithContext(r.logger, "plex children listing failed", "children_list_failed",
			logging.String(logging.FieldKind, string(parent.Kind)),
			logging.String(logging.FieldTitle, parent.Name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "children skipped"),
		)
		return nil
	}
	r.expect(len(children))
	return children
}

// posterItem migrates the images of one entity. Only fatal errors are
// returned; everything else becomes a tallied outcome.
func (o *Orchestrator) posterItem(ctx context.Context, r *run, src catalog.Entity) error {
	title := matcher.Title(src)
	result := Result{Kind: src.Kind, Title: title, SourceID: src.ID}

	dst, ok := o.matcher.FindCounterpart(ctx, title)
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
		for _, p := range o.assets.Paths(src, dst, src.Kind) {
			r.logger.Info("dry run image",
				logging.String(logging.FieldTitle, title),
				logging.String("category", string(p.Category)),
				logging.String("source", p.Source),
				logging.String("destination", p.Destination),
			)
		}
		result.Status = ledger.StatusSkipped
		result.Detail = "dry run"
		r.record(ctx, result)
		return nil
	}

	if o.assets.MigrateAssets(ctx, src, dst, src.Kind) {
		result.Status = ledger.StatusMigrated
	} else {
		result.Status = ledger.StatusFailed
		result.Detail = "images not copied"
	}
	r.record(ctx, result)
	return nil
}
