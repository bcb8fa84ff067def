package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"jellymigrate/internal/ledger"
	"jellymigrate/internal/services/jellyfin"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	plexURL    string
	jellyURL   string
	jelly      *fakeJellyfinServer
}

type fakeJellyfinServer struct {
	mu      sync.Mutex
	ratings map[string]string
	hints   map[string]string
}

func (f *fakeJellyfinServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/Users/AuthenticateByName":
		_, _ = w.Write([]byte(`{"AccessToken":"tok","User":{"Id":"admin-id"}}`))
	case r.URL.Path == "/Users":
		if r.Header.Get("X-Emby-Token") != "api-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"Id":"admin-id","Name":"admin"}]`))
	case r.URL.Path == "/Search/Hints":
		if r.Header.Get("X-Emby-Token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		term := r.URL.Query().Get("SearchTerm")
		hints := []map[string]any{}
		if id, ok := f.hints[term]; ok {
			hints = append(hints, map[string]any{"ItemId": id, "Name": term, "Type": "Movie"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"SearchHints": hints})
	case strings.HasPrefix(r.URL.Path, "/Users/admin-id/Items/") && strings.HasSuffix(r.URL.Path, "/Rating"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/Users/admin-id/Items/"), "/Rating")
		f.mu.Lock()
		f.ratings[id] = r.URL.Query().Get("Likes")
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeJellyfinServer) ratingSnapshot() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.ratings))
	for k, v := range f.ratings {
		out[k] = v
	}
	return out
}

func fakePlexHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/library/sections", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer":{"Directory":[{"key":"1","type":"movie","title":"Movies"}]}}`))
	})
	mux.HandleFunc("/library/sections/1/all", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[
			{"ratingKey":"10","guid":"plex://movie/dune","type":"movie","title":"Dune","year":2021,"userRating":8},
			{"ratingKey":"11","guid":"plex://movie/heat","type":"movie","title":"Heat","year":1995,"userRating":3},
			{"ratingKey":"12","guid":"plex://movie/up","type":"movie","title":"Up","year":2009}
		]}}`))
	})
	mux.HandleFunc("/playlists", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Plex-Token") == "alice-token" {
			_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[{"ratingKey":"51","title":"Favs","playlistType":"video"}]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[{"ratingKey":"50","title":"Favs","playlistType":"video"}]}}`))
	})
	mux.HandleFunc("/playlists/51/items", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[
			{"ratingKey":"11","guid":"plex://movie/heat","type":"movie","title":"Heat","duration":10200000,
			 "Media":[{"Part":[{"file":"/movies/Heat (1995)/Heat.mkv"}]}]}
		]}}`))
	})
	mux.HandleFunc("/identity", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer":{"machineIdentifier":"m1"}}`))
	})
	mux.HandleFunc("/myplex/account", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer":{"username":"admin"}}`))
	})
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<MediaContainer><User id="1" username="alice"><Server name="Home"/></User></MediaContainer>`))
	})
	mux.HandleFunc("/api/servers/m1/shared_servers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<MediaContainer><SharedServer userID="1" username="alice" accessToken="alice-token"/></MediaContainer>`))
	})
	mux.HandleFunc("/playlists/50/items", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[
			{"ratingKey":"10","guid":"plex://movie/dune","type":"movie","title":"Dune","year":2021,"duration":9360000,
			 "Media":[{"Part":[{"file":"/movies/Dune (2021)/Dune.mkv"}]}]}
		]}}`))
	})
	return mux
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	jelly := &fakeJellyfinServer{
		ratings: make(map[string]string),
		hints:   map[string]string{"Dune": "jf-dune", "Heat": "jf-heat"},
	}
	jellySrv := httptest.NewServer(jelly)
	t.Cleanup(jellySrv.Close)
	plexSrv := httptest.NewServer(fakePlexHandler())
	t.Cleanup(plexSrv.Close)

	configPath := filepath.Join(base, "config.toml")
	body := fmt.Sprintf(`
[paths]
state_dir = %q
log_dir = %q
export_dir = %q

[plex]
url = %q
token = "plex-token"
account_url = %q

[jellyfin]
url = %q
api_key = "api-key"
admin_username = "admin"
admin_password = "secret"

[migration]
workers = 2
ledger = true

[logging]
level = "error"
`, filepath.Join(base, "state"), filepath.Join(base, "logs"), filepath.Join(base, "out"), plexSrv.URL, plexSrv.URL, jellySrv.URL)
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{
		baseDir:    base,
		configPath: configPath,
		plexURL:    plexSrv.URL,
		jellyURL:   jellySrv.URL,
		jelly:      jelly,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCLILoginCachesToken(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"login"}, env.configPath)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "admin-id") {
		t.Fatalf("login output missing user id: %q", out)
	}
	cache := jellyfin.TokenCachePath(filepath.Join(env.baseDir, "state"), env.jellyURL)
	data, err := os.ReadFile(cache)
	if err != nil {
		t.Fatalf("read token cache: %v", err)
	}
	if string(data) != "tok\nadmin-id\n" {
		t.Fatalf("unexpected token cache %q", data)
	}
}

func TestCLIRatingsAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"ratings"}, env.configPath)
	if err != nil {
		t.Fatalf("ratings: %v", err)
	}
	if !strings.Contains(out, "ratings finished") || !strings.Contains(out, "movie") {
		t.Fatalf("unexpected ratings output: %q", out)
	}
	got := env.jelly.ratingSnapshot()
	if got["jf-dune"] != "true" || got["jf-heat"] != "false" || len(got) != 2 {
		t.Fatalf("unexpected ratings %v", got)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "ratings") || !strings.Contains(out, "completed") {
		t.Fatalf("unexpected history output: %q", out)
	}

	store, err := ledger.OpenPath(filepath.Join(env.baseDir, "state", "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	runs, err := store.Runs(context.Background(), 1)
	_ = store.Close()
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs = %v, err = %v", runs, err)
	}

	out, _, err = runCLI(t, []string{"history", "show", runs[0].ID[:8], "--status", "migrated"}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	if !strings.Contains(out, "Dune") || strings.Contains(out, "Up") {
		t.Fatalf("unexpected history show output: %q", out)
	}
}

func TestCLIRatingsDryRunChangesNothing(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"ratings", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("ratings --dry-run: %v", err)
	}
	if len(env.jelly.ratingSnapshot()) != 0 {
		t.Fatalf("dry run changed ratings: %v", env.jelly.ratingSnapshot())
	}
	if !strings.Contains(out, "Dry run") {
		t.Fatalf("missing dry run notice: %q", out)
	}
}

func TestCLIExportPlaylists(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "exports")

	out, _, err := runCLI(t, []string{"export-playlists", "--out", dir}, env.configPath)
	if err != nil {
		t.Fatalf("export-playlists: %v", err)
	}
	want := map[string]string{
		"admin_Favs.m3u": "#EXTM3U\n#PLAYLIST:Favs\n#EXTINF:9360,Dune\n/movies/Dune (2021)/Dune.mkv\n",
		"alice_Favs.m3u": "#EXTM3U\n#PLAYLIST:Favs\n#EXTINF:10200,Heat\n/movies/Heat (1995)/Heat.mkv\n",
	}
	for name, body := range want {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v (output %q)", name, err, out)
		}
		if string(data) != body {
			t.Fatalf("%s = %q, want %q", name, data, body)
		}
	}
}

func TestCLIRejectsUnknownFlagsValues(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"users", "--from", "emby"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown user source")
	}
	if _, _, err := runCLI(t, []string{"posters", "--libraries", "books"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown library")
	}
	_, _, err := runCLI(t, []string{"users", "--from", "jellyfin"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "source_jellyfin") {
		t.Fatalf("expected missing source_jellyfin error, got %v", err)
	}
}

func TestCLIConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestCLICheckReportsReadiness(t *testing.T) {
	env := setupCLITestEnv(t)

	plexHost := filepath.Join(env.baseDir, "plex")
	jellyHost := filepath.Join(env.baseDir, "jellyfin")
	if err := os.MkdirAll(plexHost, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(jellyHost, "data", "metadata", "library"), 0o755); err != nil {
		t.Fatal(err)
	}
	assetsSection := fmt.Sprintf(`
[assets]
plex_app_data = "/plexconfig"
jellyfin_app_data = "/config"

[[assets.translations]]
system = "plex"
category = "app_data"
app = "/plexconfig"
host = %q

[[assets.translations]]
system = "jellyfin"
category = "app_data"
app = "/config"
host = %q
`, plexHost, jellyHost)
	f, err := os.OpenFile(env.configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	if _, err := f.WriteString(assetsSection); err != nil {
		t.Fatalf("append config: %v", err)
	}
	_ = f.Close()

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	for _, want := range []string{"Jellyfin API key:", "[OK] " + env.jellyURL + " (1 users)", "Jellyfin admin login:", "1 libraries (1 migratable)", "Jellyfin metadata:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("check output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "[ERROR]") {
		t.Fatalf("unexpected failure in check output:\n%s", out)
	}
}

func TestCLICheckFailsOnMissingMetadataDir(t *testing.T) {
	env := setupCLITestEnv(t)

	missing := filepath.Join(env.baseDir, "missing")
	f, err := os.OpenFile(env.configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	if _, err := fmt.Fprintf(f, "\n[assets]\nplex_app_data = %q\n", missing); err != nil {
		t.Fatalf("append config: %v", err)
	}
	_ = f.Close()

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatalf("expected check failure for default /config paths:\n%s", out)
	}
	if !strings.Contains(out, "Plex app data:") || !strings.Contains(out, "[ERROR] "+missing+" (error: does not exist)") {
		t.Fatalf("expected directory error line:\n%s", out)
	}
}

func TestCLIRatingsPublishesNotification(t *testing.T) {
	env := setupCLITestEnv(t)

	var mu sync.Mutex
	var titles []string
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ntfy.Close()

	f, err := os.OpenFile(env.configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	if _, err := fmt.Fprintf(f, "\n[notifications]\nntfy_topic = %q\n", ntfy.URL); err != nil {
		t.Fatalf("append config: %v", err)
	}
	_ = f.Close()

	if _, _, err := runCLI(t, []string{"ratings"}, env.configPath); err != nil {
		t.Fatalf("ratings: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(titles) != 1 || titles[0] != "jellymigrate - ratings complete" {
		t.Fatalf("unexpected notifications %v", titles)
	}
}

func TestCLIConfigValidateSummarizes(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	for _, want := range []string{"Config path: " + env.configPath, env.jellyURL, filepath.Join(env.baseDir, "state", "ledger.db"), "Configuration valid"} {
		if !strings.Contains(out, want) {
			t.Fatalf("validate output missing %q:\n%s", want, out)
		}
	}
}
