package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePlex()
	c.normalizeJellyfin(&c.Jellyfin, "JELLYFIN")
	c.normalizeJellyfin(&c.SourceJellyfin, "SOURCE_JELLYFIN")
	c.normalizeAssets()
	c.normalizeMigration()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePlex() {
	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
	if c.Plex.Token == "" {
		if value, ok := os.LookupEnv("PLEX_TOKEN"); ok {
			c.Plex.Token = strings.TrimSpace(value)
		}
	}
	c.Plex.ServerName = strings.TrimSpace(c.Plex.ServerName)
	c.Plex.AccountURL = strings.TrimRight(strings.TrimSpace(c.Plex.AccountURL), "/")
	if c.Plex.AccountURL == "" {
		c.Plex.AccountURL = defaultPlexAccountURL
	}
	if c.Plex.RequestTimeout <= 0 {
		c.Plex.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeJellyfin(j *Jellyfin, envPrefix string) {
	j.URL = strings.TrimRight(strings.TrimSpace(j.URL), "/")
	j.APIKey = strings.TrimSpace(j.APIKey)
	if j.APIKey == "" {
		if value, ok := os.LookupEnv(envPrefix + "_API_KEY"); ok {
			j.APIKey = strings.TrimSpace(value)
		}
	}
	j.AdminUsername = strings.TrimSpace(j.AdminUsername)
	if j.AdminPassword == "" {
		if value, ok := os.LookupEnv(envPrefix + "_ADMIN_PASSWORD"); ok {
			j.AdminPassword = value
		}
	}
	j.ClientName = strings.TrimSpace(j.ClientName)
	if j.ClientName == "" {
		j.ClientName = defaultClientName
	}
	j.DeviceName = strings.TrimSpace(j.DeviceName)
	if j.DeviceName == "" {
		if host, err := os.Hostname(); err == nil {
			j.DeviceName = host
		} else {
			j.DeviceName = "jellymigrate"
		}
	}
	if j.RequestTimeout <= 0 {
		j.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeAssets() {
	c.Assets.PlexAppData = strings.TrimRight(strings.TrimSpace(c.Assets.PlexAppData), "/")
	if c.Assets.PlexAppData == "" {
		c.Assets.PlexAppData = defaultAppData
	}
	c.Assets.JellyfinAppData = strings.TrimRight(strings.TrimSpace(c.Assets.JellyfinAppData), "/")
	if c.Assets.JellyfinAppData == "" {
		c.Assets.JellyfinAppData = defaultAppData
	}
	c.Assets.JellyfinMetadata = strings.TrimSpace(c.Assets.JellyfinMetadata)
	if c.Assets.JellyfinMetadata == "" {
		c.Assets.JellyfinMetadata = defaultJellyfinMetadataDir
	}

	dirs := make(map[string]string, len(c.Assets.PlexMetadataDirs))
	for kind, dir := range c.Assets.PlexMetadataDirs {
		kind = strings.ToLower(strings.TrimSpace(kind))
		if dir = strings.TrimSpace(dir); kind != "" && dir != "" {
			dirs[kind] = dir
		}
	}
	for kind, dir := range defaultPlexMetadataDirs() {
		if _, ok := dirs[kind]; !ok {
			dirs[kind] = dir
		}
	}
	c.Assets.PlexMetadataDirs = dirs

	for i := range c.Assets.Translations {
		t := &c.Assets.Translations[i]
		t.System = strings.ToLower(strings.TrimSpace(t.System))
		t.Category = normalizeCategory(t.Category)
		t.App = strings.TrimSpace(t.App)
		t.Host = strings.TrimSpace(t.Host)
	}
}

// normalizeCategory accepts the "App Data"/"Media" spellings used by older
// translation tables.
func normalizeCategory(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.ReplaceAll(value, "-", "_")
	if value == "appdata" {
		return "app_data"
	}
	return value
}

func (c *Config) normalizeMigration() {
	if c.Migration.Workers <= 0 {
		c.Migration.Workers = defaultWorkers
	}
	if c.Migration.PasswordLength <= 0 {
		c.Migration.PasswordLength = defaultPasswordLength
	}
	libs := make([]string, 0, len(c.Migration.Libraries))
	seen := make(map[string]struct{}, len(c.Migration.Libraries))
	for _, lib := range c.Migration.Libraries {
		normalized := strings.ToLower(strings.TrimSpace(lib))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		libs = append(libs, normalized)
	}
	if len(libs) == 0 {
		libs = []string{"movies", "shows", "music"}
	}
	c.Migration.Libraries = libs
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
