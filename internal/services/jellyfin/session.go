package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"jellymigrate/internal/config"
	"jellymigrate/internal/logging"
	"jellymigrate/internal/services"
)

const (
	component      = "jellyfin"
	clientVersion  = "1.0.0"
	bodyExcerptLen = 256
	refreshKey     = "auth"
)

// HTTPDoer describes the HTTP client used by the Jellyfin client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for Jellyfin API calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTokenStore injects a custom persistence layer for the session token.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithLogger sets the logger. The client tags it with its component name.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client is one authenticated session against one Jellyfin server.
type Client struct {
	baseURL       string
	apiKey        string
	username      string
	password      string
	clientName    string
	deviceName    string
	policy        Policy
	configuration Blob

	httpClient HTTPDoer
	store      TokenStore
	logger     *slog.Logger

	mu      sync.RWMutex
	session Session
	refresh singleflight.Group
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return errors.New("empty response body")
	}
	return json.Unmarshal(r.Body, v)
}

// New builds a Client for the server described by settings. The token cache
// lives under stateDir unless WithTokenStore overrides it.
func New(settings config.Jellyfin, stateDir string, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(settings.URL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "new client", "jellyfin url is empty", nil)
	}

	policy, err := PolicyFromMap(settings.UserPolicy)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "new client", "decode user_policy", err)
	}

	timeout := time.Duration(settings.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:       baseURL,
		apiKey:        settings.APIKey,
		username:      settings.AdminUsername,
		password:      settings.AdminPassword,
		clientName:    settings.ClientName,
		deviceName:    settings.DeviceName,
		policy:        policy,
		configuration: Blob(settings.UserConfiguration),
		httpClient:    &http.Client{Timeout: timeout},
	}
	if stateDir != "" {
		c.store = NewFileTokenStore(TokenCachePath(stateDir, baseURL))
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.clientName == "" {
		c.clientName = "account-automation"
	}
	if c.deviceName == "" {
		c.deviceName = "jellymigrate"
	}
	c.logger = logging.NewComponentLogger(c.logger, component).With(logging.String("server", baseURL))
	return c, nil
}

// BaseURL returns the server root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns a snapshot of the current session.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// ActorID returns the id of the authenticated user, or "" before login.
func (c *Client) ActorID() string {
	return c.Session().UserID
}

// DefaultPolicy returns the policy applied to migrated users.
func (c *Client) DefaultPolicy() Policy {
	return c.policy.Clone()
}

// Authenticate establishes the session. Unless forceNew is set, an in-memory
// or cached token is reused without contacting the server. A fresh exchange
// overwrites the cache. Concurrent callers that need an exchange share one.
func (c *Client) Authenticate(ctx context.Context, forceNew bool) error {
	if !forceNew {
		if c.Session().Valid() {
			return nil
		}
		if cached, ok := c.loadCached(); ok {
			c.setSession(cached)
			c.logger.Debug("using cached jellyfin token", logging.String("user_id", cached.UserID))
			return nil
		}
	}

	_, err, _ := c.refresh.Do(refreshKey, func() (any, error) {
		if !forceNew && c.Session().Valid() {
			return nil, nil
		}
		return nil, c.login(ctx)
	})
	return err
}

// login runs the credential exchange and stores the result. Callers hold the
// refresh flight.
func (c *Client) login(ctx context.Context) error {
	session, err := c.exchange(ctx)
	if err != nil {
		c.setSession(Session{})
		logging.ErrorWithContext(c.logger, "jellyfin authentication failed", "auth_failed",
			logging.Error(err),
			logging.String("username", c.username),
			logging.String(logging.FieldErrorHint, "check jellyfin.admin_username and admin_password"),
		)
		return err
	}

	c.setSession(session)
	if c.store != nil {
		if err := c.store.Save(session); err != nil {
			c.logger.Warn("jellyfin token cache not written", logging.Error(err))
		}
	}
	c.logger.Info("authenticated with jellyfin", logging.String("user_id", session.UserID))
	return nil
}

func (c *Client) loadCached() (Session, bool) {
	if c.store == nil {
		return Session{}, false
	}
	session, err := c.store.Load()
	if err != nil {
		c.logger.Warn("jellyfin token cache unreadable", logging.Error(err))
		return Session{}, false
	}
	return session, session.Valid()
}

func (c *Client) setSession(session Session) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
}

type authRequest struct {
	Username string `json:"Username"`
	Password string `json:"Password"`
	Pw       string `json:"Pw"`
}

type authResponse struct {
	AccessToken string `json:"AccessToken"`
	User        struct {
		ID string `json:"Id"`
	} `json:"User"`
}

func (c *Client) exchange(ctx context.Context) (Session, error) {
	headers := map[string]string{"X-Emby-Authorization": c.authorizationHeader()}
	body := authRequest{Username: c.username, Password: c.password, Pw: c.password}

	resp, err := c.send(ctx, http.MethodPost, "/Users/AuthenticateByName", headers, body)
	if err != nil {
		return Session{}, services.Wrap(services.ErrAuthentication, component, "authenticate", "credential exchange", err)
	}
	if !resp.OK() {
		return Session{}, services.Wrap(services.ErrAuthentication, component, "authenticate",
			fmt.Sprintf("status %d: %s", resp.StatusCode, excerpt(resp.Body)), nil)
	}

	var payload authResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return Session{}, services.Wrap(services.ErrAuthentication, component, "authenticate", "decode response", err)
	}
	session := Session{Token: payload.AccessToken, UserID: payload.User.ID}
	if !session.Valid() {
		return Session{}, services.Wrap(services.ErrAuthentication, component, "authenticate", "response missing token or user id", nil)
	}
	return session, nil
}

// authorizationHeader identifies this tool to Jellyfin. The device id is a
// name-based UUID so it stays stable across runs on the same host.
func (c *Client) authorizationHeader() string {
	deviceID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("jellymigrate:"+c.deviceName)).String()
	return fmt.Sprintf(`MediaBrowser Client="%s", Device="%s", DeviceId="%s", Version="%s"`,
		c.clientName, c.deviceName, deviceID, clientVersion)
}

// Request performs a token-authenticated call. A 401 triggers exactly one
// forced re-authentication and one retry; a second 401 is returned as is.
// Transport failures and 5xx responses are never retried. Non-2xx responses
// are returned without an error so callers can inspect them.
func (c *Client) Request(ctx context.Context, method, path string, headers map[string]string, body any) (*Response, error) {
	if err := c.Authenticate(ctx, false); err != nil {
		return nil, err
	}

	token := c.Session().Token
	resp, err := c.sendWithToken(ctx, method, path, headers, body, token)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	c.logger.Info("jellyfin token rejected, re-authenticating", logging.String("path", redactQuery(path)))
	if err := c.reauthenticate(ctx, token); err != nil {
		return resp, err
	}
	return c.sendWithToken(ctx, method, path, headers, body, c.Session().Token)
}

// reauthenticate forces a fresh exchange unless another caller already
// replaced the stale token. Concurrent callers share one exchange.
func (c *Client) reauthenticate(ctx context.Context, stale string) error {
	_, err, _ := c.refresh.Do(refreshKey, func() (any, error) {
		if current := c.Session(); current.Valid() && current.Token != stale {
			return nil, nil
		}
		return nil, c.login(ctx)
	})
	return err
}

// APIKeyRequest performs a call authenticated with the static API key.
func (c *Client) APIKeyRequest(ctx context.Context, method, path string, headers map[string]string, body any) (*Response, error) {
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "api key request", "jellyfin api_key is not configured", nil)
	}
	return c.sendWithToken(ctx, method, path, headers, body, c.apiKey)
}

func (c *Client) sendWithToken(ctx context.Context, method, path string, headers map[string]string, body any, token string) (*Response, error) {
	merged := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		merged[k] = v
	}
	merged["X-Emby-Token"] = token
	return c.send(ctx, method, path, merged, body)
}

func (c *Client) send(ctx context.Context, method, path string, headers map[string]string, body any) (*Response, error) {
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, services.Wrap(services.ErrUnexpected, component, method+" "+redactQuery(path), "encode body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, services.Wrap(services.ErrUnexpected, component, method+" "+redactQuery(path), "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, component, method+" "+redactQuery(path), "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, component, method+" "+redactQuery(path), "read body", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// checkStatus converts a non-2xx response into a classified error.
func checkStatus(resp *Response, operation string) error {
	if resp.OK() {
		return nil
	}
	marker := services.ErrUnexpected
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		marker = services.ErrAuthentication
	case http.StatusForbidden:
		marker = services.ErrForbidden
	case http.StatusNotFound:
		marker = services.ErrNotFound
	}
	return services.Wrap(marker, component, operation, fmt.Sprintf("status %d: %s", resp.StatusCode, excerpt(resp.Body)), nil)
}

func excerpt(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > bodyExcerptLen {
		text = text[:bodyExcerptLen] + "..."
	}
	if text == "" {
		return "(empty body)"
	}
	return text
}

func redactQuery(path string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		return path[:idx]
	}
	return path
}
