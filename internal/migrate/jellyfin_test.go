package migrate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"jellymigrate/internal/catalog"
	"jellymigrate/internal/config"
	"jellymigrate/internal/ledger"
	"jellymigrate/internal/services/jellyfin"
)

// ratingServer is a Jellyfin stand-in that refuses ratings for some items.
type ratingServer struct {
	forbidden map[string]bool

	mu    sync.Mutex
	rated map[string]string
}

func (s *ratingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/Users/AuthenticateByName":
		_, _ = w.Write([]byte(`{"AccessToken":"tok","User":{"Id":"admin"}}`))
	case strings.HasPrefix(r.URL.Path, "/Users/admin/Items/") && strings.HasSuffix(r.URL.Path, "/Rating"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/Users/admin/Items/"), "/Rating")
		if s.forbidden[id] {
			http.Error(w, "access denied", http.StatusForbidden)
			return
		}
		s.mu.Lock()
		s.rated[id] = r.URL.Query().Get("Likes")
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestRatingsForbiddenItemDoesNotStopRun(t *testing.T) {
	srv := &ratingServer{forbidden: map[string]bool{"jf-dune": true}, rated: make(map[string]string)}
	httpSrv := httptest.NewServer(srv)
	defer httpSrv.Close()

	client, err := jellyfin.New(config.Jellyfin{URL: httpSrv.URL, AdminUsername: "admin", AdminPassword: "pw"}, t.TempDir())
	if err != nil {
		t.Fatalf("jellyfin.New: %v", err)
	}
	o := New(Deps{Source: librarySource(), Destination: client, Matcher: ratingMatcher()}, Options{Workers: 1})

	report, err := o.Ratings(context.Background())
	if err != nil {
		t.Fatalf("a 403 on one item must not abort the run: %v", err)
	}
	if srv.rated["jf-heat"] != "false" || srv.rated["jf-human"] != "true" {
		t.Fatalf("remaining items were not rated: %v", srv.rated)
	}
	if report.Count(catalog.KindMovie, ledger.StatusFailed) != 1 ||
		report.Count(catalog.KindMovie, ledger.StatusMigrated) != 1 ||
		report.Count(catalog.KindTrack, ledger.StatusMigrated) != 1 {
		t.Fatalf("unexpected counts %v", report.Counts)
	}
}
