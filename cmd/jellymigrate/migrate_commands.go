package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jellymigrate/internal/migrate"
	"jellymigrate/internal/services/jellyfin"
)

func newPostersCommand(ctx *commandContext) *cobra.Command {
	var libraries []string

	cmd := &cobra.Command{
		Use:   "posters",
		Short: "Copy posters and backdrops of matched items",
		Long: "Copy the poster and backdrop of every Plex movie, show, season, episode, artist and album\n" +
			"onto its Jellyfin counterpart. Jellyfin must have scanned the libraries first and both\n" +
			"servers' metadata directories must be reachable from this host.",
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, lib := range libraries {
				libraries[i] = strings.ToLower(strings.TrimSpace(lib))
				switch libraries[i] {
				case "movies", "shows", "music":
				default:
					return fmt.Errorf("unknown library %q (want movies, shows or music)", lib)
				}
			}
			return ctx.withOrchestrator(cmd, true, func(o *migrate.Orchestrator, _ *jellyfin.Client) error {
				report, err := o.Posters(cmd.Context(), libraries)
				return ctx.complete(cmd, report, err)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&libraries, "libraries", "l", nil, "Library types to include: movies, shows, music")
	return cmd
}

func newRatingsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ratings",
		Short: "Copy user ratings of movies and tracks as likes and dislikes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(cmd, true, func(o *migrate.Orchestrator, _ *jellyfin.Client) error {
				report, err := o.Ratings(cmd.Context())
				return ctx.complete(cmd, report, err)
			})
		},
	}
}

func newPlaylistsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "playlists",
		Short: "Recreate Plex playlists on Jellyfin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withOrchestrator(cmd, true, func(o *migrate.Orchestrator, _ *jellyfin.Client) error {
				report, err := o.Playlists(cmd.Context())
				return ctx.complete(cmd, report, err)
			})
		},
	}
}

func newUsersCommand(ctx *commandContext) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Create Jellyfin accounts for Plex shared users or another Jellyfin server's users",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToLower(strings.TrimSpace(from)) {
			case "", "plex":
				return ctx.withOrchestrator(cmd, true, func(o *migrate.Orchestrator, _ *jellyfin.Client) error {
					report, err := o.PlexUsers(cmd.Context())
					err = ctx.complete(cmd, report, err)
					printCredentials(cmd.OutOrStdout(), report)
					return err
				})
			case "jellyfin":
				source, err := ctx.sourceJellyfin()
				if err != nil {
					return err
				}
				return ctx.withOrchestrator(cmd, false, func(o *migrate.Orchestrator, _ *jellyfin.Client) error {
					report, err := o.CopyUsers(cmd.Context(), source)
					err = ctx.complete(cmd, report, err)
					printCredentials(cmd.OutOrStdout(), report)
					return err
				})
			default:
				return fmt.Errorf("unknown user source %q (want plex or jellyfin)", from)
			}
		},
	}
	cmd.Flags().StringVar(&from, "from", "plex", "Where to read accounts from: plex or jellyfin")
	return cmd
}

func newExportPlaylistsCommand(ctx *commandContext) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export-playlists",
		Short: "Write each Plex playlist to an M3U file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := strings.TrimSpace(outDir)
			if dir == "" {
				dir = cfg.Paths.ExportDir
			}
			return ctx.withOrchestrator(cmd, true, func(o *migrate.Orchestrator, _ *jellyfin.Client) error {
				report, err := o.ExportPlaylists(cmd.Context(), dir)
				err = ctx.complete(cmd, report, err)
				if report != nil {
					for _, path := range report.Files {
						fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (defaults to paths.export_dir)")
	return cmd
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var source bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Jellyfin and cache the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			build := ctx.destination
			if source {
				build = ctx.sourceJellyfin
			}
			client, err := build()
			if err != nil {
				return err
			}
			if err := client.Authenticate(cmd.Context(), force); err != nil {
				return fmt.Errorf("login to %s: %w", client.BaseURL(), err)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Authenticated with %s\n", client.BaseURL())
			fmt.Fprintf(out, "User id:     %s\n", client.ActorID())
			fmt.Fprintf(out, "Token cache: %s\n", jellyfin.TokenCachePath(cfg.Paths.StateDir, client.BaseURL()))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Ignore the cached token and authenticate again")
	cmd.Flags().BoolVar(&source, "source", false, "Log in to the source Jellyfin server instead of the destination")
	return cmd
}
