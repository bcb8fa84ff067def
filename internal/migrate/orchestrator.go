package migrate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"jellymigrate/internal/catalog"
	"jellymigrate/internal/config"
	"jellymigrate/internal/ledger"
	"jellymigrate/internal/logging"
	"jellymigrate/internal/matcher"
	"jellymigrate/internal/services"
	"jellymigrate/internal/services/jellyfin"
	"jellymigrate/internal/services/plex"
)

// Source is the Plex catalog the migration reads from.
type Source interface {
	Sections(ctx context.Context) ([]plex.Section, error)
	Items(ctx context.Context, sectionKey string) ([]catalog.Entity, error)
	Children(ctx context.Context, parent catalog.Entity) ([]catalog.Entity, error)
	Tracks(ctx context.Context, artist catalog.Entity) ([]catalog.Entity, error)
	Playlists(ctx context.Context) ([]plex.Playlist, error)
	PlaylistItems(ctx context.Context, playlist plex.Playlist) ([]catalog.Entity, error)
	SharedUsers(ctx context.Context) ([]plex.User, error)
	SharedServerTokens(ctx context.Context) (map[string]string, error)
	OwnerName(ctx context.Context) (string, error)
	AsUser(token string) plex.PlaylistReader
}

// Destination is the Jellyfin server the migration writes to.
type Destination interface {
	matcher.Searcher
	Authenticate(ctx context.Context, forceNew bool) error
	CreateUser(ctx context.Context, name string) (jellyfin.User, error)
	ResetPassword(ctx context.Context, id string) error
	SetPassword(ctx context.Context, id, current, next string) error
	UpdatePolicy(ctx context.Context, id string, policy *jellyfin.Policy) error
	UpdateConfiguration(ctx context.Context, id string, blob jellyfin.Blob) error
	CreatePlaylist(ctx context.Context, name string) (string, error)
	AddToPlaylist(ctx context.Context, playlistID string, itemIDs []string) error
	UpdateRating(ctx context.Context, itemID string, like bool) error
}

// UserSource lists the accounts of another Jellyfin server.
type UserSource interface {
	Users(ctx context.Context) ([]jellyfin.User, error)
}

// Matcher resolves a canonical title to its destination entity.
type Matcher interface {
	FindCounterpart(ctx context.Context, title string) (catalog.Entity, bool)
}

// AssetMigrator resolves and copies images for a matched pair.
type AssetMigrator interface {
	Paths(src, dst catalog.Entity, kind catalog.Kind) []catalog.AssetPath
	MigrateAssets(ctx context.Context, src, dst catalog.Entity, kind catalog.Kind) bool
}

// Ledger persists run outcomes.
type Ledger interface {
	BeginRun(ctx context.Context, operation string, dryRun bool) (ledger.Run, error)
	Record(ctx context.Context, outcome ledger.Outcome) error
	FinishRun(ctx context.Context, runID, status string) error
}

// Progress receives item counts as they become known and each finished item.
// Implementations must be safe for concurrent use.
type Progress interface {
	Expect(n int)
	Done(Result)
}

// Options tune the orchestrator.
type Options struct {
	Workers           int
	DryRun            bool
	Libraries         []string
	UpvoteThreshold   float64
	GeneratePasswords bool
	PasswordLength    int
}

// OptionsFromConfig derives orchestrator options from the migration section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Workers:           cfg.Migration.Workers,
		Libraries:         cfg.Migration.Libraries,
		UpvoteThreshold:   cfg.Migration.UpvoteThreshold,
		GeneratePasswords: cfg.Migration.GeneratePasswords,
		PasswordLength:    cfg.Migration.PasswordLength,
	}
}

// Deps wires the orchestrator's collaborators. Matcher defaults to a title
// matcher over Destination. Ledger and Progress are optional.
type Deps struct {
	Source      Source
	Destination Destination
	Matcher     Matcher
	Assets      AssetMigrator
	Ledger      Ledger
	Progress    Progress
	Logger      *slog.Logger
}

// Orchestrator runs migration operations.
type Orchestrator struct {
	source   Source
	dest     Destination
	matcher  Matcher
	assets   AssetMigrator
	ledger   Ledger
	progress Progress
	opts     Options
	logger   *slog.Logger
}

// New builds an Orchestrator.
func New(deps Deps, opts Options) *Orchestrator {
	logger := logging.NewComponentLogger(deps.Logger, "migrate")
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.UpvoteThreshold <= 0 {
		opts.UpvoteThreshold = 6.0
	}
	if opts.PasswordLength <= 0 {
		opts.PasswordLength = 10
	}
	m := deps.Matcher
	if m == nil && deps.Destination != nil {
		m = matcher.New(deps.Destination, deps.Logger)
	}
	return &Orchestrator{
		source:   deps.Source,
		dest:     deps.Destination,
		matcher:  m,
		assets:   deps.Assets,
		ledger:   deps.Ledger,
		progress: deps.Progress,
		opts:     opts,
		logger:   logger,
	}
}

// run tracks one operation: its id, tally and ledger rows.
type run struct {
	o      *Orchestrator
	id     string
	logger *slog.Logger

	mu     sync.Mutex
	report *Report
}

func (o *Orchestrator) start(ctx context.Context, operation string) (context.Context, *run) {
	id := ""
	if o.ledger != nil {
		entry, err := o.ledger.BeginRun(ctx, operation, o.opts.DryRun)
		if err != nil {
			logging.WarnWithContext(o.logger, "ledger unavailable", "ledger_begin_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "outcomes of this run are not recorded"),
			)
		} else {
			id = entry.ID
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	ctx = services.WithOperation(services.WithRunID(ctx, id), operation)
	r := &run{
		o:      o,
		id:     id,
		logger: logging.WithContext(ctx, o.logger),
		report: newReport(operation, id, o.opts.DryRun),
	}
	r.logger.Info("migration started", logging.Bool("dry_run", o.opts.DryRun), logging.Int("workers", o.opts.Workers))
	return ctx, r
}

func (r *run) record(ctx context.Context, res Result) {
	r.mu.Lock()
	r.report.add(res.Kind, res.Status)
	r.mu.Unlock()

	attrs := []logging.Attr{
		logging.String(logging.FieldKind, string(res.Kind)),
		logging.String(logging.FieldTitle, res.Title),
		logging.String("status", string(res.Status)),
	}
	if res.DestinationID != "" {
		attrs = append(attrs, logging.String("destination_id", res.DestinationID))
	}
	if res.Detail != "" {
		attrs = append(attrs, logging.String("detail", res.Detail))
	}
	switch res.Status {
	case ledger.StatusFailed:
		if res.Err != nil {
			attrs = append(attrs, logging.Error(res.Err))
		}
		logging.WarnWithContext(r.logger, "item failed", "item_failed", attrs...)
	case ledger.StatusUnmatched:
		r.logger.Info("item not found on destination", logging.Args(attrs...)...)
	default:
		r.logger.Info("item processed", logging.Args(attrs...)...)
	}

	if r.o.ledger != nil {
		detail := res.Detail
		if res.Err != nil {
			detail = strings.TrimSpace(strings.Join([]string{detail, res.Err.Error()}, " "))
		}
		outcome := ledger.Outcome{
			RunID:         r.id,
			Kind:          string(res.Kind),
			Title:         res.Title,
			SourceID:      res.SourceID,
			DestinationID: res.DestinationID,
			Status:        res.Status,
			ErrorClass:    services.Classify(res.Err),
			Detail:        detail,
		}
		// The ledger outlives cancellation so aborted runs still show their last items.
		if err := r.o.ledger.Record(context.WithoutCancel(ctx), outcome); err != nil {
			r.logger.Debug("ledger record failed", logging.Error(err))
		}
	}
	if r.o.progress != nil {
		r.o.progress.Done(res)
	}
}

func (r *run) addCredential(c Credential) {
	r.mu.Lock()
	r.report.Credentials = append(r.report.Credentials, c)
	r.mu.Unlock()
}

func (r *run) addFile(path string) {
	r.mu.Lock()
	r.report.Files = append(r.report.Files, path)
	r.mu.Unlock()
}

func (r *run) expect(n int) {
	if r.o.progress != nil && n > 0 {
		r.o.progress.Expect(n)
	}
}

func (r *run) finish(ctx context.Context, err error) (*Report, error) {
	r.mu.Lock()
	report := r.report
	report.Elapsed = time.Since(report.StartedAt)
	r.mu.Unlock()

	status := ledger.RunCompleted
	if err != nil {
		status = ledger.RunAborted
		logging.ErrorWithContext(r.logger, "migration aborted", "migration_aborted",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, errorHint(err)),
		)
	} else {
		r.logger.Info("migration finished",
			logging.Int("migrated", report.Total(ledger.StatusMigrated)),
			logging.Int("skipped", report.Total(ledger.StatusSkipped)),
			logging.Int("unmatched", report.Total(ledger.StatusUnmatched)),
			logging.Int("failed", report.Total(ledger.StatusFailed)),
			logging.Duration("elapsed", report.Elapsed),
		)
	}
	if r.o.ledger != nil {
		if ferr := r.o.ledger.FinishRun(context.WithoutCancel(ctx), r.id, status); ferr != nil {
			r.logger.Debug("ledger finish failed", logging.Error(ferr))
		}
	}
	return report, err
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, services.ErrAuthentication):
		return "check the admin credentials and api key for the server"
	case errors.Is(err, services.ErrForbidden):
		return "the admin account is not allowed to change this item"
	case errors.Is(err, context.Canceled):
		return "run was cancelled; rerun to continue"
	default:
		return "check logs for details"
	}
}

// forEach runs fn for every item on at most workers goroutines. A non-nil
// error from fn stops dispatch of the remaining items. Items not yet started
// when ctx is cancelled are never started.
func forEach[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			return fn(gctx, item)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// authenticate ensures the destination session before any work starts.
func (o *Orchestrator) authenticate(ctx context.Context) error {
	if o.dest == nil {
		return services.Wrap(services.ErrConfiguration, "migrate", "authenticate", "no destination configured", nil)
	}
	return o.dest.Authenticate(ctx, false)
}

// fatal reports whether err must stop the whole operation.
func fatal(err error) bool {
	return services.IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// wantLibrary reports whether the section belongs to a selected library.
func wantLibrary(libraries []string, section plex.Section) bool {
	name := section.Library()
	if name == "" {
		return false
	}
	if len(libraries) == 0 {
		return true
	}
	for _, lib := range libraries {
		if strings.EqualFold(strings.TrimSpace(lib), name) {
			return true
		}
	}
	return false
}
