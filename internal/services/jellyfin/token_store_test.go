package jellyfin

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "jf.token")
	store := NewFileTokenStore(path)

	empty, err := store.Load()
	if err != nil {
		t.Fatalf("Load missing: %v", err)
	}
	if empty.Valid() {
		t.Fatalf("expected empty session for missing file, got %+v", empty)
	}

	want := Session{Token: "abc", UserID: "user-1"}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	if string(data) != "abc\nuser-1\n" {
		t.Fatalf("unexpected cache layout: %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat cache: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", info.Mode().Perm())
	}
}

func TestFileTokenStoreTreatsShortFileAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jf.token")
	for _, content := range []string{"", "only-token\n", "\n\ntoken\n\n"} {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := NewFileTokenStore(path).Load()
		if err != nil {
			t.Fatalf("Load(%q): %v", content, err)
		}
		if got.Valid() || got.Token != "" {
			t.Fatalf("expected absent session for %q, got %+v", content, got)
		}
	}
}

func TestTokenCachePathPerServer(t *testing.T) {
	dir := t.TempDir()
	a := TokenCachePath(dir, "http://jf-a:8096/")
	b := TokenCachePath(dir, "http://jf-b:8096")
	if a == b {
		t.Fatal("expected distinct cache files per server")
	}
	if a != TokenCachePath(dir, "HTTP://JF-A:8096") {
		t.Fatal("expected normalized URL to map to the same file")
	}
	if filepath.Dir(a) != dir {
		t.Fatalf("expected cache under state dir, got %q", a)
	}
}
