package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jellymigrate/internal/config"
	"jellymigrate/internal/services/jellyfin"
	"jellymigrate/internal/services/plex"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir, ReadWrite)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "read/write ok") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"), ReadOnly)
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f, ReadOnly)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func newJellyfinServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Users":
			if r.Header.Get("X-Emby-Token") != "good-key" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`[{"Id":"u1","Name":"admin"},{"Id":"u2","Name":"guest"}]`))
		case "/Users/AuthenticateByName":
			_, _ = w.Write([]byte(`{"AccessToken":"tok","User":{"Id":"u1"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newJellyfinClient(t *testing.T, url, key string) *jellyfin.Client {
	t.Helper()
	client, err := jellyfin.New(config.Jellyfin{URL: url, APIKey: key, AdminUsername: "admin", AdminPassword: "pw"}, t.TempDir())
	if err != nil {
		t.Fatalf("jellyfin.New: %v", err)
	}
	return client
}

func TestCheckJellyfinAPIKey(t *testing.T) {
	srv := newJellyfinServer(t)

	result := CheckJellyfinAPIKey(context.Background(), "Jellyfin", newJellyfinClient(t, srv.URL, "good-key"))
	if !result.Passed || !strings.Contains(result.Detail, "2 users") {
		t.Fatalf("expected pass with user count, got %+v", result)
	}

	result = CheckJellyfinAPIKey(context.Background(), "Jellyfin", newJellyfinClient(t, srv.URL, "bad-key"))
	if result.Passed || !strings.Contains(result.Detail, "invalid api key") {
		t.Fatalf("expected auth failure, got %+v", result)
	}
}

func TestCheckJellyfinLogin(t *testing.T) {
	srv := newJellyfinServer(t)
	result := CheckJellyfinLogin(context.Background(), "login", newJellyfinClient(t, srv.URL, "good-key"))
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}

	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer rejecting.Close()
	result = CheckJellyfinLogin(context.Background(), "login", newJellyfinClient(t, rejecting.URL, "good-key"))
	if result.Passed || !strings.Contains(result.Detail, "login rejected") {
		t.Fatalf("expected login rejection, got %+v", result)
	}
}

func TestCheckPlex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Plex-Token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"MediaContainer":{"Directory":[{"key":"1","type":"movie","title":"Movies"},{"key":"2","type":"photo","title":"Photos"}]}}`))
	}))
	defer srv.Close()

	client, err := plex.New(config.Plex{URL: srv.URL, Token: "tok"})
	if err != nil {
		t.Fatalf("plex.New: %v", err)
	}
	result := CheckPlex(context.Background(), client)
	if !result.Passed || result.Detail != "2 libraries (1 migratable)" {
		t.Fatalf("unexpected result %+v", result)
	}

	bad, err := plex.New(config.Plex{URL: srv.URL, Token: "nope"})
	if err != nil {
		t.Fatalf("plex.New: %v", err)
	}
	if result := CheckPlex(context.Background(), bad); result.Passed || !strings.Contains(result.Detail, "invalid token") {
		t.Fatalf("expected auth failure, got %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, Targets{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_TranslatesMetadataDirectories(t *testing.T) {
	plexHost := t.TempDir()
	jellyHost := t.TempDir()
	if err := os.MkdirAll(filepath.Join(jellyHost, "data", "metadata", "library"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Assets.PlexAppData = "/plexconfig"
	cfg.Assets.JellyfinAppData = "/config"
	cfg.Assets.JellyfinMetadata = "/data/metadata/library"
	cfg.Assets.Translations = []config.Translation{
		{System: "plex", Category: "app_data", App: "/plexconfig", Host: plexHost},
		{System: "jellyfin", Category: "app_data", App: "/config", Host: jellyHost},
	}

	results := RunAll(context.Background(), &cfg, Targets{})
	if len(results) != 3 {
		t.Fatalf("expected 3 directory results, got %+v", results)
	}
	if Failed(results) {
		t.Fatalf("unexpected failure: %+v", results)
	}
	if !strings.HasPrefix(results[2].Detail, filepath.Join(jellyHost, "data", "metadata", "library")) {
		t.Fatalf("jellyfin metadata dir not translated: %q", results[2].Detail)
	}
}
