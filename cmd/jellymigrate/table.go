package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"jellymigrate/internal/ledger"
	"jellymigrate/internal/migrate"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

var reportStatuses = []ledger.Status{
	ledger.StatusMigrated,
	ledger.StatusSkipped,
	ledger.StatusUnmatched,
	ledger.StatusFailed,
}

func statusHeaders(first string) []string {
	headers := []string{first}
	for _, s := range reportStatuses {
		headers = append(headers, titleCase(string(s)))
	}
	return headers
}

func statusAligns() []columnAlignment {
	aligns := []columnAlignment{alignLeft}
	for range reportStatuses {
		aligns = append(aligns, alignRight)
	}
	return aligns
}

// printReport writes the per-kind tally of report.
func printReport(out io.Writer, report *migrate.Report) {
	if report == nil {
		return
	}
	kinds := report.Kinds()
	if len(kinds) == 0 {
		fmt.Fprintf(out, "%s: nothing to do (run %s)\n", report.Operation, report.RunID)
		return
	}
	rows := make([][]string, 0, len(kinds)+1)
	for _, kind := range kinds {
		row := []string{string(kind)}
		for _, s := range reportStatuses {
			row = append(row, strconv.Itoa(report.Count(kind, s)))
		}
		rows = append(rows, row)
	}
	total := []string{"total"}
	for _, s := range reportStatuses {
		total = append(total, strconv.Itoa(report.Total(s)))
	}
	rows = append(rows, total)

	fmt.Fprintf(out, "%s finished in %s (run %s)\n", report.Operation, report.Elapsed.Round(10*time.Millisecond), report.RunID)
	fmt.Fprintln(out, renderTable(statusHeaders("Kind"), rows, statusAligns()))
	printDryRunNotice(out, report.DryRun)
}

// printCredentials lists the accounts created by a users run.
func printCredentials(out io.Writer, report *migrate.Report) {
	if report == nil || len(report.Credentials) == 0 {
		return
	}
	rows := make([][]string, 0, len(report.Credentials))
	for _, c := range report.Credentials {
		password := c.Password
		if password == "" {
			password = "(none)"
		}
		rows = append(rows, []string{c.Username, password, c.UserID})
	}
	fmt.Fprintln(out, renderTable([]string{"Username", "Password", "User ID"}, rows, nil))
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
