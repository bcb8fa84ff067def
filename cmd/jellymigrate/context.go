package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"jellymigrate/internal/assets"
	"jellymigrate/internal/config"
	"jellymigrate/internal/ledger"
	"jellymigrate/internal/logging"
	"jellymigrate/internal/migrate"
	"jellymigrate/internal/notifications"
	"jellymigrate/internal/services/jellyfin"
	"jellymigrate/internal/services/plex"
)

type commandContext struct {
	configFlag *string
	dryRun     bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) destination() (*jellyfin.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return jellyfin.New(cfg.Jellyfin, cfg.Paths.StateDir, jellyfin.WithLogger(logger))
}

func (c *commandContext) sourceJellyfin() (*jellyfin.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.HasSourceJellyfin() {
		return nil, fmt.Errorf("source_jellyfin.url is not configured")
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return jellyfin.New(cfg.SourceJellyfin, cfg.Paths.StateDir, jellyfin.WithLogger(logger))
}

func (c *commandContext) plexClient() (*plex.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequirePlex(); err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return plex.New(cfg.Plex, plex.WithLogger(logger))
}

// withOrchestrator builds the orchestrator for one command and closes the
// ledger afterwards. needsPlex is false for commands that only read Jellyfin.
func (c *commandContext) withOrchestrator(cmd *cobra.Command, needsPlex bool, fn func(*migrate.Orchestrator, *jellyfin.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	dest, err := c.destination()
	if err != nil {
		return err
	}

	deps := migrate.Deps{
		Destination: dest,
		Assets:      assets.NewLocator(cfg.Assets, logger),
		Logger:      logger,
	}
	if needsPlex {
		src, err := c.plexClient()
		if err != nil {
			return err
		}
		deps.Source = src
	}
	if cfg.Migration.Ledger {
		store, err := ledger.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "run ledger unavailable", "ledger_open_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "outcomes of this run are not recorded"),
			)
		} else {
			defer store.Close()
			deps.Ledger = store
		}
	}
	progress := newProgress(cmd.ErrOrStderr())
	if progress != nil {
		deps.Progress = progress
		defer progress.Finish()
	}

	opts := migrate.OptionsFromConfig(cfg)
	opts.DryRun = c.dryRun
	return fn(migrate.New(deps, opts), dest)
}

// complete prints the tally of a finished run and publishes it to ntfy. The
// run's own error is returned unchanged; a failed notification is only logged.
func (c *commandContext) complete(cmd *cobra.Command, report *migrate.Report, runErr error) error {
	printReport(cmd.OutOrStdout(), report)

	cfg, err := c.ensureConfig()
	if err != nil {
		return runErr
	}
	logger, _ := c.ensureLogger()
	notifier := notifications.NewService(cfg)
	notifyCtx := context.WithoutCancel(cmd.Context())

	var notifyErr error
	switch {
	case report == nil:
		notifyErr = notifier.NotifyRunAborted(notifyCtx, cmd.Name(), runErr)
	case runErr != nil:
		notifyErr = notifier.NotifyRunAborted(notifyCtx, report.Operation, runErr)
	default:
		notifyErr = notifier.NotifyRunCompleted(notifyCtx, notifications.Summary{
			Operation: report.Operation,
			RunID:     report.RunID,
			DryRun:    report.DryRun,
			Migrated:  report.Total(ledger.StatusMigrated),
			Skipped:   report.Total(ledger.StatusSkipped),
			Unmatched: report.Total(ledger.StatusUnmatched),
			Failed:    report.Total(ledger.StatusFailed),
			Elapsed:   report.Elapsed,
		})
	}
	if notifyErr != nil {
		logging.WarnWithContext(logger, "run notification not delivered", "notification_failed",
			logging.Error(notifyErr),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "run summary not sent"),
		)
	}
	return runErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func printDryRunNotice(out io.Writer, dryRun bool) {
	if dryRun {
		fmt.Fprintln(out, "Dry run: nothing was changed on the destination.")
	}
}
