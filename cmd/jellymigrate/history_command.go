package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jellymigrate/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous migration runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				runs, err := store.Runs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					row := []string{
						shortID(run.ID),
						run.Operation,
						run.StartedAt.Local().Format(time.DateTime),
						run.Status,
						yesNo(run.DryRun),
					}
					for _, s := range reportStatuses {
						row = append(row, strconv.Itoa(run.Counts[s]))
					}
					rows = append(rows, row)
				}
				headers := append([]string{"Run", "Operation", "Started", "Status", "Dry run"}, statusHeaders("")[1:]...)
				aligns := append([]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}, statusAligns()[1:]...)
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show item outcomes of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ledger.Status(strings.ToLower(strings.TrimSpace(status)))
			switch filter {
			case "", ledger.StatusMigrated, ledger.StatusSkipped, ledger.StatusUnmatched, ledger.StatusFailed:
			default:
				return fmt.Errorf("unknown status %q", status)
			}
			return ctx.withLedger(func(store *ledger.Store) error {
				run, err := store.Run(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				outcomes, err := store.Outcomes(cmd.Context(), run.ID, filter)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s: %s (%s)\n", run.ID, run.Operation, run.Status)
				if len(outcomes) == 0 {
					fmt.Fprintln(out, "No outcomes")
					return nil
				}
				rows := make([][]string, 0, len(outcomes))
				for _, o := range outcomes {
					rows = append(rows, []string{o.Kind, o.Title, string(o.Status), o.DestinationID, o.ErrorClass, o.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Kind", "Title", "Status", "Destination", "Error", "Detail"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show outcomes with this status")
	return cmd
}

func (c *commandContext) withLedger(fn func(*ledger.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ledger.Open(cfg)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
