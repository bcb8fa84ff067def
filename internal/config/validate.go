package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	validSystems    = map[string]struct{}{"plex": {}, "jellyfin": {}}
	validCategories = map[string]struct{}{"app_data": {}, "media": {}}
	validLibraries  = map[string]struct{}{"movies": {}, "shows": {}, "music": {}}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateJellyfin(); err != nil {
		return err
	}
	if err := c.validateSourceJellyfin(); err != nil {
		return err
	}
	if err := c.validateAssets(); err != nil {
		return err
	}
	if err := c.validateMigration(); err != nil {
		return err
	}
	return nil
}

// RequirePlex reports whether the source Plex server is configured. Commands
// that read the Plex catalog call it before connecting.
func (c *Config) RequirePlex() error {
	if strings.TrimSpace(c.Plex.URL) == "" {
		return errors.New("plex.url must be set")
	}
	if strings.TrimSpace(c.Plex.Token) == "" {
		return errors.New("plex.token is required. Set PLEX_TOKEN env var or edit the config file")
	}
	return nil
}

func (c *Config) validateJellyfin() error {
	if strings.TrimSpace(c.Jellyfin.URL) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("jellyfin.url is required. Edit %s (create with 'jellymigrate config init')", defaultPath)
	}
	if strings.TrimSpace(c.Jellyfin.AdminUsername) == "" {
		return errors.New("jellyfin.admin_username must be set")
	}
	return nil
}

func (c *Config) validateSourceJellyfin() error {
	if !c.HasSourceJellyfin() {
		return nil
	}
	if strings.TrimSpace(c.SourceJellyfin.APIKey) == "" {
		return errors.New("source_jellyfin.api_key must be set when source_jellyfin.url is set")
	}
	if c.SourceJellyfin.URL == c.Jellyfin.URL {
		return errors.New("source_jellyfin.url must differ from jellyfin.url")
	}
	return nil
}

func (c *Config) validateAssets() error {
	for i, t := range c.Assets.Translations {
		if _, ok := validSystems[t.System]; !ok {
			return fmt.Errorf("assets.translations[%d].system must be plex or jellyfin, got %q", i, t.System)
		}
		if _, ok := validCategories[t.Category]; !ok {
			return fmt.Errorf("assets.translations[%d].category must be app_data or media, got %q", i, t.Category)
		}
		if t.App == "" {
			return fmt.Errorf("assets.translations[%d].app must be set", i)
		}
	}
	return nil
}

func (c *Config) validateMigration() error {
	if c.Migration.Workers <= 0 {
		return errors.New("migration.workers must be positive")
	}
	if c.Migration.UpvoteThreshold < 0 || c.Migration.UpvoteThreshold > 10 {
		return errors.New("migration.upvote_threshold must be between 0 and 10")
	}
	if c.Migration.PasswordLength < 4 {
		return errors.New("migration.password_length must be at least 4")
	}
	for _, lib := range c.Migration.Libraries {
		if _, ok := validLibraries[lib]; !ok {
			return fmt.Errorf("migration.libraries: unsupported value %q (movies, shows, music)", lib)
		}
	}
	return nil
}
