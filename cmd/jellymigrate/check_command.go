package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jellymigrate/internal/notifications"
	"jellymigrate/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify server credentials and metadata directory access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var targets preflight.Targets
			dest, err := ctx.destination()
			if err != nil {
				return err
			}
			targets.Jellyfin = dest
			if cfg.HasSourceJellyfin() {
				src, err := ctx.sourceJellyfin()
				if err != nil {
					return err
				}
				targets.SourceJellyfin = src
			}
			if strings.TrimSpace(cfg.Plex.URL) != "" {
				src, err := ctx.plexClient()
				if err != nil {
					return err
				}
				targets.Plex = src
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			for _, line := range renderSectionHeader("Readiness", colorize) {
				fmt.Fprintln(out, line)
			}
			if targets.Plex == nil {
				fmt.Fprintln(out, renderStatusLine("Plex", statusInfo, "not configured", colorize))
			}

			results := preflight.RunAll(cmd.Context(), cfg, targets)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			failed := preflight.Failed(results)
			if notify {
				if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
					fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, "not configured", colorize))
				} else if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
					fmt.Fprintln(out, renderStatusLine("Notifications", statusError, err.Error(), colorize))
					failed = true
				} else {
					fmt.Fprintln(out, renderStatusLine("Notifications", statusOK, "test message sent", colorize))
				}
			}
			if failed {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "Also send a test notification to the ntfy topic")
	return cmd
}
