package plex

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"jellymigrate/internal/config"
	"jellymigrate/internal/logging"
	"jellymigrate/internal/services"
)

const (
	component      = "plex"
	productName    = "jellymigrate"
	productVersion = "1.0.0"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for Plex calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithAccountURL overrides the plex.tv base URL (used in tests).
func WithAccountURL(baseURL string) Option {
	return func(c *Client) {
		c.accountURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client reads one Plex Media Server.
type Client struct {
	baseURL    string
	token      string
	serverName string
	accountURL string
	httpClient HTTPDoer
	logger     *slog.Logger
}

// New builds a Client from the plex configuration section.
func New(cfg config.Plex, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, "new client", "plex url is empty", nil)
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		serverName: strings.TrimSpace(cfg.ServerName),
		accountURL: strings.TrimRight(strings.TrimSpace(cfg.AccountURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.accountURL == "" {
		c.accountURL = "https://plex.tv"
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: timeout}
	}
	c.logger = logging.NewComponentLogger(c.logger, component)
	return c, nil
}

// ServerName returns the configured server name used to filter shared users.
func (c *Client) ServerName() string {
	return c.serverName
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.get(ctx, c.baseURL+path, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrUnexpected, component, "GET "+path, "decode response", err)
	}
	return nil
}

func (c *Client) getXML(ctx context.Context, rawURL string, out any) error {
	body, err := c.get(ctx, rawURL, "application/xml")
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrUnexpected, component, "GET "+rawURL, "decode response", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	operation := "GET " + strings.TrimPrefix(rawURL, c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrUnexpected, component, operation, "build request", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("X-Plex-Product", productName)
	req.Header.Set("X-Plex-Version", productVersion)
	req.Header.Set("X-Plex-Client-Identifier", productName)
	req.Header.Set("X-Plex-Platform", runtime.GOOS)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, component, operation, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, component, operation, "read body", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		marker := services.ErrUnexpected
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			marker = services.ErrAuthentication
		case http.StatusForbidden:
			marker = services.ErrForbidden
		case http.StatusNotFound:
			marker = services.ErrNotFound
		}
		detail := strings.TrimSpace(string(body))
		if len(detail) > 256 {
			detail = detail[:256]
		}
		return nil, services.Wrap(marker, component, operation, fmt.Sprintf("status %d: %s", resp.StatusCode, detail), nil)
	}
	return body, nil
}
