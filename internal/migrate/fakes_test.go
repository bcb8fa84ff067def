package migrate

import (
	"context"
	"errors"
	"sync"

	"jellymigrate/internal/catalog"
	"jellymigrate/internal/ledger"
	"jellymigrate/internal/services"
	"jellymigrate/internal/services/jellyfin"
	"jellymigrate/internal/services/plex"
)

type fakeSource struct {
	sections      []plex.Section
	items         map[string][]catalog.Entity
	children      map[string][]catalog.Entity
	tracks        map[string][]catalog.Entity
	playlists     []plex.Playlist
	playlistItems map[string][]catalog.Entity
	users         []plex.User
	owner         string
	ownerErr      error
	tokens        map[string]string
	userLists     map[string][]plex.Playlist
	userErr       map[string]error

	mu           sync.Mutex
	sectionCalls int
}

func (s *fakeSource) Sections(context.Context) ([]plex.Section, error) {
	s.mu.Lock()
	s.sectionCalls++
	s.mu.Unlock()
	return s.sections, nil
}

func (s *fakeSource) Items(_ context.Context, key string) ([]catalog.Entity, error) {
	return s.items[key], nil
}

func (s *fakeSource) Children(_ context.Context, parent catalog.Entity) ([]catalog.Entity, error) {
	return s.children[parent.Key], nil
}

func (s *fakeSource) Tracks(_ context.Context, artist catalog.Entity) ([]catalog.Entity, error) {
	return s.tracks[artist.Key], nil
}

func (s *fakeSource) Playlists(context.Context) ([]plex.Playlist, error) {
	return s.playlists, nil
}

func (s *fakeSource) PlaylistItems(_ context.Context, p plex.Playlist) ([]catalog.Entity, error) {
	return s.playlistItems[p.Key], nil
}

func (s *fakeSource) SharedUsers(context.Context) ([]plex.User, error) {
	return s.users, nil
}

func (s *fakeSource) SharedServerTokens(context.Context) (map[string]string, error) {
	return s.tokens, nil
}

func (s *fakeSource) OwnerName(context.Context) (string, error) {
	if s.ownerErr != nil {
		return "", s.ownerErr
	}
	if s.owner == "" {
		return "admin", nil
	}
	return s.owner, nil
}

func (s *fakeSource) AsUser(token string) plex.PlaylistReader {
	return &fakeUserView{source: s, token: token}
}

// fakeUserView serves the playlists a shared user's token can see.
type fakeUserView struct {
	source *fakeSource
	token  string
}

func (v *fakeUserView) Playlists(context.Context) ([]plex.Playlist, error) {
	if err := v.source.userErr[v.token]; err != nil {
		return nil, err
	}
	return v.source.userLists[v.token], nil
}

func (v *fakeUserView) PlaylistItems(_ context.Context, p plex.Playlist) ([]catalog.Entity, error) {
	return v.source.playlistItems[p.Key], nil
}

type fakeDest struct {
	authErr     error
	hints       map[string][]jellyfin.SearchHint
	ratingErr   map[string]error
	resetErr    error
	policyErr   error
	playlistIDs int

	mu            sync.Mutex
	ratings       map[string]bool
	ratingOrder   []string
	users         []string
	passwords     map[string]string
	policies      []string
	configs       []string
	playlistNames []string
	playlistItems map[string][]string
	addCalls      int
}

func newFakeDest() *fakeDest {
	return &fakeDest{
		hints:         make(map[string][]jellyfin.SearchHint),
		ratingErr:     make(map[string]error),
		ratings:       make(map[string]bool),
		passwords:     make(map[string]string),
		playlistItems: make(map[string][]string),
	}
}

func (d *fakeDest) Authenticate(context.Context, bool) error { return d.authErr }

func (d *fakeDest) Search(_ context.Context, term string) ([]jellyfin.SearchHint, error) {
	return d.hints[term], nil
}

func (d *fakeDest) CreateUser(_ context.Context, name string) (jellyfin.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users = append(d.users, name)
	return jellyfin.User{ID: "id-" + name, Name: name}, nil
}

func (d *fakeDest) ResetPassword(context.Context, string) error { return d.resetErr }

func (d *fakeDest) SetPassword(_ context.Context, id, current, next string) error {
	if current != "" {
		return errors.New("current password must be empty after reset")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.passwords[id] = next
	return nil
}

func (d *fakeDest) UpdatePolicy(_ context.Context, id string, policy *jellyfin.Policy) error {
	if policy != nil {
		return errors.New("expected the default policy")
	}
	if d.policyErr != nil {
		return d.policyErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.policies = append(d.policies, id)
	return nil
}

func (d *fakeDest) UpdateConfiguration(_ context.Context, id string, _ jellyfin.Blob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configs = append(d.configs, id)
	return nil
}

func (d *fakeDest) CreatePlaylist(_ context.Context, name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playlistIDs++
	d.playlistNames = append(d.playlistNames, name)
	return "pl-" + name, nil
}

func (d *fakeDest) AddToPlaylist(_ context.Context, playlistID string, itemIDs []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addCalls++
	d.playlistItems[playlistID] = append(d.playlistItems[playlistID], itemIDs...)
	return nil
}

func (d *fakeDest) UpdateRating(_ context.Context, itemID string, like bool) error {
	if err := d.ratingErr[itemID]; err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ratings[itemID] = like
	d.ratingOrder = append(d.ratingOrder, itemID)
	return nil
}

type fakeMatcher struct {
	matches map[string]catalog.Entity

	mu      sync.Mutex
	queried []string
}

func (m *fakeMatcher) FindCounterpart(_ context.Context, title string) (catalog.Entity, bool) {
	m.mu.Lock()
	m.queried = append(m.queried, title)
	m.mu.Unlock()
	e, ok := m.matches[title]
	return e, ok
}

type fakeAssets struct {
	fail map[string]bool

	mu     sync.Mutex
	copied []string
	paths  int
}

func (a *fakeAssets) Paths(_, dst catalog.Entity, _ catalog.Kind) []catalog.AssetPath {
	a.mu.Lock()
	a.paths++
	a.mu.Unlock()
	return []catalog.AssetPath{{Category: catalog.CategoryPoster, Destination: "/jf/" + dst.ID + "/poster.jpg"}}
}

func (a *fakeAssets) MigrateAssets(_ context.Context, src, _ catalog.Entity, _ catalog.Kind) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.copied = append(a.copied, src.ID)
	return !a.fail[src.ID]
}

type fakeProgress struct {
	mu       sync.Mutex
	expected int
	done     int
}

func (p *fakeProgress) Expect(n int) {
	p.mu.Lock()
	p.expected += n
	p.mu.Unlock()
}

func (p *fakeProgress) Done(Result) {
	p.mu.Lock()
	p.done++
	p.mu.Unlock()
}

func authFailure() error {
	return services.Wrap(services.ErrAuthentication, "jellyfin", "authenticate", "status 401", nil)
}

func match(id, name string) catalog.Entity {
	return catalog.Entity{ID: id, Name: name}
}

func statusCount(r *Report, kind catalog.Kind, status ledger.Status) int {
	if r == nil {
		return -1
	}
	return r.Count(kind, status)
}
