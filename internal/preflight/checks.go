package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"jellymigrate/internal/services"
	"jellymigrate/internal/services/jellyfin"
	"jellymigrate/internal/services/plex"
)

// checkTimeout bounds each network probe.
const checkTimeout = 10 * time.Second

// Access is the permission a directory check requires.
type Access uint32

const (
	ReadOnly  Access = unix.R_OK | unix.X_OK
	ReadWrite Access = unix.R_OK | unix.W_OK | unix.X_OK
)

func (a Access) String() string {
	if a&unix.W_OK != 0 {
		return "read/write"
	}
	return "read"
}

// JellyfinProbe is the subset of the Jellyfin client the checks use.
type JellyfinProbe interface {
	BaseURL() string
	Authenticate(ctx context.Context, forceNew bool) error
	Users(ctx context.Context) ([]jellyfin.User, error)
}

// PlexProbe is the subset of the Plex client the checks use.
type PlexProbe interface {
	Sections(ctx context.Context) ([]plex.Section, error)
}

// CheckJellyfinAPIKey verifies the API key by listing users.
func CheckJellyfinAPIKey(ctx context.Context, name string, client JellyfinProbe) Result {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	users, err := client.Users(checkCtx)
	if err != nil {
		if errors.Is(err, services.ErrAuthentication) {
			return Result{Name: name, Detail: "auth failed (invalid api key)"}
		}
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d users)", client.BaseURL(), len(users))}
}

// CheckJellyfinLogin verifies the admin credentials with a fresh exchange.
func CheckJellyfinLogin(ctx context.Context, name string, client JellyfinProbe) Result {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := client.Authenticate(checkCtx, true); err != nil {
		if errors.Is(err, services.ErrAuthentication) && !errors.Is(err, services.ErrTransport) {
			return Result{Name: name, Detail: "login rejected (check admin_username and admin_password)"}
		}
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "token cached"}
}

// CheckPlex verifies Plex connectivity and the token by listing sections.
func CheckPlex(ctx context.Context, client PlexProbe) Result {
	const name = "Plex"

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	sections, err := client.Sections(checkCtx)
	if err != nil {
		if errors.Is(err, services.ErrAuthentication) {
			return Result{Name: name, Detail: "auth failed (invalid token)"}
		}
		return Result{Name: name, Detail: summarizeError(err)}
	}
	usable := 0
	for _, s := range sections {
		if s.Library() != "" {
			usable++
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d libraries (%d migratable)", len(sections), usable)}
}

// CheckDirectoryAccess verifies that the directory exists and grants access.
func CheckDirectoryAccess(name, path string, access Access) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, uint32(access)); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s ok)", path, access)}
}

// summarizeError produces a human-readable summary for probe failures.
func summarizeError(err error) string {
	if isTimeout(err) {
		return "timed out (server unreachable)"
	}
	return err.Error()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
