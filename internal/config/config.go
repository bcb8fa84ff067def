package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	ExportDir string `toml:"export_dir"`
}

// Plex contains configuration for the source Plex Media Server.
type Plex struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	ServerName     string `toml:"server_name"`
	AccountURL     string `toml:"account_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Jellyfin contains connection settings for a Jellyfin server.
type Jellyfin struct {
	URL               string         `toml:"url"`
	APIKey            string         `toml:"api_key"`
	AdminUsername     string         `toml:"admin_username"`
	AdminPassword     string         `toml:"admin_password"`
	ClientName        string         `toml:"client_name"`
	DeviceName        string         `toml:"device_name"`
	RequestTimeout    int            `toml:"request_timeout"`
	UserPolicy        map[string]any `toml:"user_policy"`
	UserConfiguration map[string]any `toml:"user_configuration"`
}

// Translation maps an application-visible path prefix to the real path on
// the host running the migration.
type Translation struct {
	System   string `toml:"system"`
	Category string `toml:"category"`
	App      string `toml:"app"`
	Host     string `toml:"host"`
}

// Assets describes where each server keeps its image metadata.
type Assets struct {
	PlexAppData      string            `toml:"plex_app_data"`
	JellyfinAppData  string            `toml:"jellyfin_app_data"`
	PlexMetadataDirs map[string]string `toml:"plex_metadata_dirs"`
	JellyfinMetadata string            `toml:"jellyfin_metadata_dir"`
	Translations     []Translation     `toml:"translations"`
}

// Migration contains knobs shared by the migration commands.
type Migration struct {
	Workers           int      `toml:"workers"`
	Libraries         []string `toml:"libraries"`
	UpvoteThreshold   float64  `toml:"upvote_threshold"`
	GeneratePasswords bool     `toml:"generate_passwords"`
	PasswordLength    int      `toml:"password_length"`
	Ledger            bool     `toml:"ledger"`
}

// Notifications configures ntfy run summaries.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for jellymigrate.
//
// Configuration sections by subsystem:
//   - Paths: token cache/ledger state, logs, playlist exports
//   - Plex: source server and plex.tv account access
//   - Jellyfin: destination server, admin credentials, default user policy
//   - SourceJellyfin: optional second Jellyfin used as a user source
//   - Assets: metadata roots and the app-to-host path translation table
//   - Migration: worker count, library filter, rating threshold, passwords
//   - Notifications: optional ntfy topic for run summaries
//   - Logging: log format and level
type Config struct {
	Paths          Paths         `toml:"paths"`
	Plex           Plex          `toml:"plex"`
	Jellyfin       Jellyfin      `toml:"jellyfin"`
	SourceJellyfin Jellyfin      `toml:"source_jellyfin"`
	Assets         Assets        `toml:"assets"`
	Migration      Migration     `toml:"migration"`
	Notifications  Notifications `toml:"notifications"`
	Logging        Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("jellymigrate.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the location of the run ledger database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// JellyfinTimeout returns the per-request timeout for the destination server.
func (c *Config) JellyfinTimeout() time.Duration {
	return time.Duration(c.Jellyfin.RequestTimeout) * time.Second
}

// PlexTimeout returns the per-request timeout for the source server.
func (c *Config) PlexTimeout() time.Duration {
	return time.Duration(c.Plex.RequestTimeout) * time.Second
}

// HasSourceJellyfin reports whether a source Jellyfin server is configured.
func (c *Config) HasSourceJellyfin() bool {
	return strings.TrimSpace(c.SourceJellyfin.URL) != ""
}

// TranslationsFor returns the translation entries for one system and
// category in file order.
func (c *Config) TranslationsFor(system, category string) []Translation {
	var out []Translation
	for _, t := range c.Assets.Translations {
		if t.System == system && t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
