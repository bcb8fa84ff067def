package plex

import (
	"context"
	"net/url"
	"strings"

	"jellymigrate/internal/catalog"
	"jellymigrate/internal/services"
)

// PlaylistReader lists playlists and their entries for one account.
type PlaylistReader interface {
	Playlists(ctx context.Context) ([]Playlist, error)
	PlaylistItems(ctx context.Context, playlist Playlist) ([]catalog.Entity, error)
}

// User is a plex.tv account the server owner shares libraries with.
type User struct {
	ID       string
	Username string
	Email    string
	Servers  []string
}

type usersContainer struct {
	Users []struct {
		ID       string `xml:"id,attr"`
		Title    string `xml:"title,attr"`
		Username string `xml:"username,attr"`
		Email    string `xml:"email,attr"`
		Servers  []struct {
			Name string `xml:"name,attr"`
		} `xml:"Server"`
	} `xml:"User"`
}

// SharedUsers returns the accounts with access to the configured server. With
// no server name configured every shared account is returned. Accounts
// without a username are skipped.
func (c *Client) SharedUsers(ctx context.Context) ([]User, error) {
	var container usersContainer
	if err := c.getXML(ctx, c.accountURL+"/api/users", &container); err != nil {
		return nil, err
	}

	out := make([]User, 0, len(container.Users))
	for _, raw := range container.Users {
		name := strings.TrimSpace(raw.Username)
		if name == "" {
			name = strings.TrimSpace(raw.Title)
		}
		if name == "" {
			continue
		}
		user := User{ID: raw.ID, Username: name, Email: raw.Email}
		for _, s := range raw.Servers {
			user.Servers = append(user.Servers, s.Name)
		}
		if !user.HasServer(c.serverName) {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

// HasServer reports whether the user can access the named server. An empty
// name matches every user.
func (u User) HasServer(name string) bool {
	if name == "" {
		return true
	}
	for _, s := range u.Servers {
		if s == name {
			return true
		}
	}
	return false
}

type sharedServersContainer struct {
	SharedServers []struct {
		UserID      string `xml:"userID,attr"`
		Username    string `xml:"username,attr"`
		AccessToken string `xml:"accessToken,attr"`
	} `xml:"SharedServer"`
}

// MachineIdentifier returns the unique identifier of the connected server.
func (c *Client) MachineIdentifier(ctx context.Context) (string, error) {
	var container struct {
		MediaContainer struct {
			MachineIdentifier string `json:"machineIdentifier"`
		} `json:"MediaContainer"`
	}
	if err := c.getJSON(ctx, "/identity", &container); err != nil {
		return "", err
	}
	id := strings.TrimSpace(container.MediaContainer.MachineIdentifier)
	if id == "" {
		return "", services.Wrap(services.ErrUnexpected, component, "GET /identity", "server returned no machine identifier", nil)
	}
	return id, nil
}

// SharedServerTokens maps plex.tv user ids to the access tokens they hold for
// the connected server. Users without a token are left out.
func (c *Client) SharedServerTokens(ctx context.Context) (map[string]string, error) {
	machineID, err := c.MachineIdentifier(ctx)
	if err != nil {
		return nil, err
	}
	var container sharedServersContainer
	rawURL := c.accountURL + "/api/servers/" + url.PathEscape(machineID) + "/shared_servers"
	if err := c.getXML(ctx, rawURL, &container); err != nil {
		return nil, err
	}
	tokens := make(map[string]string, len(container.SharedServers))
	for _, s := range container.SharedServers {
		token := strings.TrimSpace(s.AccessToken)
		if s.UserID == "" || token == "" {
			continue
		}
		tokens[s.UserID] = token
	}
	return tokens, nil
}

// OwnerName returns the plex.tv username the configured token belongs to.
func (c *Client) OwnerName(ctx context.Context) (string, error) {
	var container struct {
		MediaContainer struct {
			Username string `json:"username"`
		} `json:"MediaContainer"`
	}
	if err := c.getJSON(ctx, "/myplex/account", &container); err != nil {
		return "", err
	}
	name := strings.TrimSpace(container.MediaContainer.Username)
	if name == "" {
		return "", services.Wrap(services.ErrUnexpected, component, "GET /myplex/account", "account has no username", nil)
	}
	return name, nil
}

// AsUser returns a reader that sees the server through a shared user's token.
func (c *Client) AsUser(token string) PlaylistReader {
	clone := *c
	clone.token = strings.TrimSpace(token)
	return &clone
}
