package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jellymigrate/internal/catalog"
	"jellymigrate/internal/fileutil"
	"jellymigrate/internal/ledger"
	"jellymigrate/internal/logging"
	"jellymigrate/internal/services/plex"
	"jellymigrate/internal/textutil"
)

// ExportPlaylists writes one extended M3U file per Plex playlist into dir,
// covering the owner and every shared user with an access token for the
// server. Files are named after the account and the playlist title. Entries
// without a media location are left out of the file.
func (o *Orchestrator) ExportPlaylists(ctx context.Context, dir string) (*Report, error) {
	ctx, r := o.start(ctx, "export-playlists")
	return r.finish(ctx, o.exportPlaylists(ctx, r, dir))
}

// exportJob is one playlist bound to its account and output file.
type exportJob struct {
	reader   plex.PlaylistReader
	owner    string
	playlist plex.Playlist
	path     string
	renamed  bool
	shared   bool
}

// account is a view of the server through one account's token.
type account struct {
	name   string
	reader plex.PlaylistReader
	shared bool
}

func (o *Orchestrator) exportPlaylists(ctx context.Context, r *run, dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("export directory is empty")
	}
	if !o.opts.DryRun {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	accounts, err := o.exportAccounts(ctx, r)
	if err != nil {
		return err
	}

	var jobs []exportJob
	names := newFileNames()
	for _, acc := range accounts {
		playlists, err := acc.reader.Playlists(ctx)
		if err != nil {
			if !acc.shared || ctx.Err() != nil {
				return fmt.Errorf("list plex playlists: %w", err)
			}
			r.record(ctx, Result{Kind: KindUser, Title: acc.name, Status: ledger.StatusFailed, Err: err})
			continue
		}
		for _, p := range playlists {
			name, renamed := names.claim(textutil.SanitizeFileName(acc.name + "_" + p.Title))
			jobs = append(jobs, exportJob{
				reader:   acc.reader,
				owner:    acc.name,
				playlist: p,
				path:     filepath.Join(dir, name+".m3u"),
				renamed:  renamed,
				shared:   acc.shared,
			})
		}
	}

	r.expect(len(jobs))
	return forEach(ctx, o.opts.Workers, jobs, func(ctx context.Context, job exportJob) error {
		return o.exportPlaylist(ctx, r, job)
	})
}

// exportAccounts lists the owner followed by every shared user of the
// server. Users without an access token are recorded as skipped.
func (o *Orchestrator) exportAccounts(ctx context.Context, r *run) ([]account, error) {
	owner, err := o.source.OwnerName(ctx)
	if err != nil {
		if fatal(err) {
			return nil, fmt.Errorf("read plex account: %w", err)
		}
		logging.WarnWithContext(r.logger, "plex account name unavailable", "owner_name_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "owner playlists are prefixed with "+defaultOwnerName),
		)
		owner = defaultOwnerName
	}
	accounts := []account{{name: owner, reader: o.source}}

	users, err := o.source.SharedUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plex users: %w", err)
	}
	if len(users) == 0 {
		return accounts, nil
	}
	tokens, err := o.source.SharedServerTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plex shared server tokens: %w", err)
	}
	for _, u := range users {
		name := strings.TrimSpace(u.Username)
		if name == "" {
			continue
		}
		token, ok := tokens[u.ID]
		if !ok {
			r.record(ctx, Result{Kind: KindUser, Title: name, SourceID: u.ID, Status: ledger.StatusSkipped,
				Detail: "no access token for this server"})
			continue
		}
		accounts = append(accounts, account{name: name, reader: o.source.AsUser(token), shared: true})
	}
	return accounts, nil
}

const defaultOwnerName = "owner"

// fileNames hands out export file names that stay distinct on
// case-insensitive filesystems.
type fileNames struct {
	used map[string]bool
}

func newFileNames() *fileNames {
	return &fileNames{used: make(map[string]bool)}
}

// claim returns name, or name with a numeric suffix when an earlier claim
// already took it. The second value reports whether a suffix was added.
func (f *fileNames) claim(name string) (string, bool) {
	candidate := name
	for n := 2; f.used[strings.ToLower(candidate)]; n++ {
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
	f.used[strings.ToLower(candidate)] = true
	return candidate, candidate != name
}

func (o *Orchestrator) exportPlaylist(ctx context.Context, r *run, job exportJob) error {
	p := job.playlist
	result := Result{Kind: KindPlaylist, Title: job.owner + "/" + p.Title, SourceID: p.Key}
	items, err := job.reader.PlaylistItems(ctx, p)
	if err != nil {
		if ctx.Err() != nil || (!job.shared && fatal(err)) {
			return err
		}
		result.Status = ledger.StatusFailed
		result.Err = err
		r.record(ctx, result)
		return nil
	}

	content, written := RenderM3U(p.Title, items)
	result.DestinationID = job.path
	result.Detail = fmt.Sprintf("%d of %d entries", written, len(items))
	if job.renamed {
		result.Detail += "; file name collided, wrote " + filepath.Base(job.path)
	}

	if o.opts.DryRun {
		result.Status = ledger.StatusSkipped
		result.Detail = "dry run: " + result.Detail
		r.record(ctx, result)
		return nil
	}
	if err := fileutil.WriteFileAtomic(job.path, []byte(content), 0o644); err != nil {
		result.Status = ledger.StatusFailed
		result.Err = err
		r.record(ctx, result)
		return nil
	}
	r.addFile(job.path)
	result.Status = ledger.StatusMigrated
	r.record(ctx, result)
	return nil
}

// RenderM3U renders an extended M3U playlist and returns it with the number
// of entries written. Each entry uses its first media location.
func RenderM3U(title string, items []catalog.Entity) (string, int) {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#PLAYLIST:" + title + "\n")
	written := 0
	for _, item := range items {
		if len(item.Locations) == 0 {
			continue
		}
		fmt.Fprintf(&b, "#EXTINF:%d,%s\n", int64(item.Duration.Seconds()), item.Name)
		b.WriteString(item.Locations[0] + "\n")
		written++
	}
	return b.String(), written
}
