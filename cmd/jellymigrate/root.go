package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var dryRunFlag bool
	var workersFlag int

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "jellymigrate",
		Short:         "Migrate users, playlists, ratings and artwork from Plex to Jellyfin",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Migration.Workers = workersFlag
			}
			ctx.dryRun = dryRunFlag
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&dryRunFlag, "dry-run", "n", false, "Resolve matches and paths without changing anything")
	rootCmd.PersistentFlags().IntVarP(&workersFlag, "workers", "w", 0, "Items processed in parallel (overrides migration.workers)")

	rootCmd.AddCommand(newLoginCommand(ctx))
	rootCmd.AddCommand(newPostersCommand(ctx))
	rootCmd.AddCommand(newRatingsCommand(ctx))
	rootCmd.AddCommand(newPlaylistsCommand(ctx))
	rootCmd.AddCommand(newUsersCommand(ctx))
	rootCmd.AddCommand(newExportPlaylistsCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
