package jellyfin

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"jellymigrate/internal/services"
)

// SearchHint is one ranked result of a title search.
type SearchHint struct {
	ItemID         string `json:"ItemId"`
	RawID          string `json:"Id"`
	Name           string `json:"Name"`
	Type           string `json:"Type"`
	ProductionYear int    `json:"ProductionYear"`
	Series         string `json:"Series"`
	Album          string `json:"Album"`
	AlbumArtist    string `json:"AlbumArtist"`
}

// ID returns the item id, preferring ItemId over Id.
func (h SearchHint) ID() string {
	if h.ItemID != "" {
		return h.ItemID
	}
	return h.RawID
}

// User is a Jellyfin account.
type User struct {
	ID     string  `json:"Id"`
	Name   string  `json:"Name"`
	Policy *Policy `json:"Policy,omitempty"`
}

// Item is a library item as returned by the items endpoints.
type Item struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
	Type string `json:"Type"`
}

// Search returns hints for term in server rank order.
func (c *Client) Search(ctx context.Context, term string) ([]SearchHint, error) {
	path := "/Search/Hints?" + url.Values{"SearchTerm": {term}}.Encode()
	resp, err := c.Request(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "search"); err != nil {
		return nil, err
	}
	var payload struct {
		SearchHints []SearchHint `json:"SearchHints"`
	}
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, services.Wrap(services.ErrUnexpected, component, "search", "decode response", err)
	}
	return payload.SearchHints, nil
}

// CreateUser creates an account with no password.
func (c *Client) CreateUser(ctx context.Context, name string) (User, error) {
	resp, err := c.APIKeyRequest(ctx, http.MethodPost, "/Users/New", nil, map[string]string{"Name": name})
	if err != nil {
		return User{}, err
	}
	if err := checkStatus(resp, "create user"); err != nil {
		return User{}, err
	}
	var user User
	if err := resp.DecodeJSON(&user); err != nil {
		return User{}, services.Wrap(services.ErrUnexpected, component, "create user", "decode response", err)
	}
	if user.Name == "" {
		user.Name = name
	}
	return user, nil
}

// DeleteUser removes the account with id.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	resp, err := c.APIKeyRequest(ctx, http.MethodDelete, "/Users/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, "delete user")
}

// ResetPassword clears the password of user id.
func (c *Client) ResetPassword(ctx context.Context, id string) error {
	body := map[string]any{"Id": id, "ResetPassword": true}
	resp, err := c.Request(ctx, http.MethodPost, "/Users/"+url.PathEscape(id)+"/Password", nil, body)
	if err != nil {
		return err
	}
	return checkStatus(resp, "reset password")
}

// SetPassword changes the password of user id from current to next.
func (c *Client) SetPassword(ctx context.Context, id, current, next string) error {
	body := map[string]any{"Id": id, "CurrentPw": current, "NewPw": next}
	resp, err := c.Request(ctx, http.MethodPost, "/Users/"+url.PathEscape(id)+"/Password", nil, body)
	if err != nil {
		return err
	}
	return checkStatus(resp, "set password")
}

// UpdatePolicy replaces the policy of user id. A nil policy applies the
// configured default.
func (c *Client) UpdatePolicy(ctx context.Context, id string, policy *Policy) error {
	p := c.DefaultPolicy()
	if policy != nil {
		p = *policy
	}
	resp, err := c.Request(ctx, http.MethodPost, "/Users/"+url.PathEscape(id)+"/Policy", nil, p)
	if err != nil {
		return err
	}
	return checkStatus(resp, "update policy")
}

// UpdateConfiguration replaces the display configuration of user id. A nil
// blob applies the configured default; with no default nothing is sent.
func (c *Client) UpdateConfiguration(ctx context.Context, id string, blob Blob) error {
	if blob == nil {
		blob = c.configuration
	}
	if len(blob) == 0 {
		return nil
	}
	resp, err := c.Request(ctx, http.MethodPost, "/Users/"+url.PathEscape(id)+"/Configuration", nil, blob)
	if err != nil {
		return err
	}
	return checkStatus(resp, "update configuration")
}

// CreatePlaylist creates an empty playlist owned by the session user and
// returns its id.
func (c *Client) CreatePlaylist(ctx context.Context, name string) (string, error) {
	if err := c.Authenticate(ctx, false); err != nil {
		return "", err
	}
	query := url.Values{"Name": {name}, "UserId": {c.ActorID()}}
	resp, err := c.Request(ctx, http.MethodPost, "/Playlists?"+query.Encode(), nil, nil)
	if err != nil {
		return "", err
	}
	if err := checkStatus(resp, "create playlist"); err != nil {
		return "", err
	}
	var payload struct {
		ID         string `json:"Id"`
		PlaylistID string `json:"PlaylistId"`
	}
	if err := resp.DecodeJSON(&payload); err != nil {
		return "", services.Wrap(services.ErrUnexpected, component, "create playlist", "decode response", err)
	}
	if payload.ID != "" {
		return payload.ID, nil
	}
	if payload.PlaylistID == "" {
		return "", services.Wrap(services.ErrUnexpected, component, "create playlist", "response missing id", nil)
	}
	return payload.PlaylistID, nil
}

// AddToPlaylist appends itemIDs to the playlist in one call.
func (c *Client) AddToPlaylist(ctx context.Context, playlistID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	if err := c.Authenticate(ctx, false); err != nil {
		return err
	}
	query := url.Values{"Ids": {strings.Join(itemIDs, ",")}, "UserId": {c.ActorID()}}
	path := "/Playlists/" + url.PathEscape(playlistID) + "/Items?" + query.Encode()
	resp, err := c.Request(ctx, http.MethodPost, path, nil, nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, "add to playlist")
}

// UpdateRating likes or dislikes itemID as the session user.
func (c *Client) UpdateRating(ctx context.Context, itemID string, like bool) error {
	if err := c.Authenticate(ctx, false); err != nil {
		return err
	}
	path := "/Users/" + url.PathEscape(c.ActorID()) + "/Items/" + url.PathEscape(itemID) +
		"/Rating?" + url.Values{"Likes": {strconv.FormatBool(like)}}.Encode()
	resp, err := c.Request(ctx, http.MethodPost, path, nil, nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, "update rating")
}

// Users lists every account on the server.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	resp, err := c.APIKeyRequest(ctx, http.MethodGet, "/Users", nil, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "list users"); err != nil {
		return nil, err
	}
	var users []User
	if err := resp.DecodeJSON(&users); err != nil {
		return nil, services.Wrap(services.ErrUnexpected, component, "list users", "decode response", err)
	}
	return users, nil
}

// Libraries lists the top-level views of the session user.
func (c *Client) Libraries(ctx context.Context) ([]Item, error) {
	if err := c.Authenticate(ctx, false); err != nil {
		return nil, err
	}
	resp, err := c.Request(ctx, http.MethodGet, "/Users/"+url.PathEscape(c.ActorID())+"/Items", nil, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, "list libraries"); err != nil {
		return nil, err
	}
	var payload struct {
		Items []Item `json:"Items"`
	}
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, services.Wrap(services.ErrUnexpected, component, "list libraries", "decode response", err)
	}
	return payload.Items, nil
}
