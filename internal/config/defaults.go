package config

const (
	defaultConfigPath          = "~/.config/jellymigrate/config.toml"
	defaultStateDir            = "~/.local/share/jellymigrate"
	defaultLogDir              = "~/.local/share/jellymigrate/logs"
	defaultExportDir           = "./out"
	defaultPlexAccountURL      = "https://plex.tv"
	defaultRequestTimeout      = 30
	defaultNtfyRequestTimeout  = 10
	defaultClientName          = "account-automation"
	defaultAppData             = "/config"
	defaultJellyfinMetadataDir = "/data/metadata/library"
	defaultPlexMetadataBase    = "/Library/Application Support/Plex Media Server/Metadata"
	defaultWorkers             = 1
	defaultUpvoteThreshold     = 6.0
	defaultPasswordLength      = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		Plex: Plex{
			AccountURL:     defaultPlexAccountURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Jellyfin: Jellyfin{
			ClientName:     defaultClientName,
			RequestTimeout: defaultRequestTimeout,
		},
		SourceJellyfin: Jellyfin{
			ClientName:     defaultClientName,
			RequestTimeout: defaultRequestTimeout,
		},
		Assets: Assets{
			PlexAppData:      defaultAppData,
			JellyfinAppData:  defaultAppData,
			PlexMetadataDirs: defaultPlexMetadataDirs(),
			JellyfinMetadata: defaultJellyfinMetadataDir,
		},
		Migration: Migration{
			Workers:           defaultWorkers,
			Libraries:         []string{"movies", "shows", "music"},
			UpvoteThreshold:   defaultUpvoteThreshold,
			GeneratePasswords: true,
			PasswordLength:    defaultPasswordLength,
			Ledger:            true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// defaultPlexMetadataDirs mirrors the Plex agent bundle layout, keyed by item kind.
func defaultPlexMetadataDirs() map[string]string {
	return map[string]string{
		"movie":   defaultPlexMetadataBase + "/Movies",
		"show":    defaultPlexMetadataBase + "/TV Shows",
		"season":  defaultPlexMetadataBase + "/TV Shows",
		"episode": defaultPlexMetadataBase + "/TV Shows",
		"artist":  defaultPlexMetadataBase + "/Artists",
		"album":   defaultPlexMetadataBase + "/Albums",
		"track":   defaultPlexMetadataBase + "/Albums",
	}
}
