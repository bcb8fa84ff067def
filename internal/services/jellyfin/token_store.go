package jellyfin

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Session is the authenticated identity of a client: an access token and the
// id of the user it belongs to. Both are set together or not at all.
type Session struct {
	Token  string
	UserID string
}

// Valid reports whether both halves of the session are present.
func (s Session) Valid() bool {
	return s.Token != "" && s.UserID != ""
}

// TokenStore abstracts persistence for the session token.
type TokenStore interface {
	Load() (Session, error)
	Save(Session) error
}

// FileTokenStore keeps the session in a two-line text file: the access token
// followed by the user id.
type FileTokenStore struct {
	path string
	lock *flock.Flock
}

// NewFileTokenStore builds a FileTokenStore at path. A sibling ".lock" file
// serializes access across processes.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path, lock: flock.New(path + ".lock")}
}

// TokenCachePath returns the cache file for the server at baseURL. Each server
// gets its own file so a source and destination Jellyfin never collide.
func TokenCachePath(stateDir, baseURL string) string {
	normalized := strings.ToLower(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	sum := sha1.Sum([]byte(normalized))
	return filepath.Join(stateDir, "jellyfin-"+hex.EncodeToString(sum[:])[:12]+".token")
}

// Path returns the cache file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load reads the cached session. A missing file, or one with fewer than two
// non-empty lines, resolves to an empty session.
func (s *FileTokenStore) Load() (Session, error) {
	if _, err := os.Stat(filepath.Dir(s.path)); errors.Is(err, os.ErrNotExist) {
		return Session{}, nil
	}
	if err := s.lock.RLock(); err != nil {
		return Session{}, fmt.Errorf("lock token cache: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("read token cache: %w", err)
	}
	return parseSession(string(data)), nil
}

// Save overwrites the cache with restricted permissions.
func (s *FileTokenStore) Save(session Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure token cache directory: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock token cache: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data := session.Token + "\n" + session.UserID + "\n"
	if err := os.WriteFile(s.path, []byte(data), 0o600); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("restrict token cache: %w", err)
	}
	return nil
}

func parseSession(data string) Session {
	lines := make([]string, 0, 2)
	for _, line := range strings.Split(data, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return Session{}
	}
	return Session{Token: lines[0], UserID: lines[1]}
}
