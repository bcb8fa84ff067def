package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of one entity.
type Status string

const (
	StatusMigrated  Status = "migrated"
	StatusSkipped   Status = "skipped"
	StatusUnmatched Status = "unmatched"
	StatusFailed    Status = "failed"
)

// Run status values.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunAborted   = "aborted"
)

// Run is one command invocation.
type Run struct {
	ID         string
	Operation  string
	DryRun     bool
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Counts     map[Status]int
}

// Outcome is the result of one entity within a run.
type Outcome struct {
	RunID         string
	Kind          string
	Title         string
	SourceID      string
	DestinationID string
	Status        Status
	ErrorClass    string
	Detail        string
	RecordedAt    time.Time
}

// BeginRun starts a run and returns its record.
func (s *Store) BeginRun(ctx context.Context, operation string, dryRun bool) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Operation: operation,
		DryRun:    dryRun,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	err := s.exec(ctx,
		"INSERT INTO runs (id, operation, dry_run, status, started_at) VALUES (?, ?, ?, ?, ?)",
		run.ID, run.Operation, boolToInt(dryRun), run.Status, formatTime(run.StartedAt),
	)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// FinishRun marks a run as finished with status.
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	if err := s.exec(ctx,
		"UPDATE runs SET status = ?, finished_at = ? WHERE id = ?",
		status, formatTime(time.Now()), runID,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Record appends an outcome to its run.
func (s *Store) Record(ctx context.Context, o Outcome) error {
	if o.RunID == "" {
		return errors.New("record outcome: run id is empty")
	}
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now()
	}
	if err := s.exec(ctx,
		`INSERT INTO outcomes (run_id, kind, title, source_id, destination_id, status, error_class, detail, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Kind, o.Title, o.SourceID, o.DestinationID, string(o.Status), o.ErrorClass, o.Detail, formatTime(o.RecordedAt),
	); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// Runs returns the most recent runs first, with outcome counts per status.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, operation, dry_run, status, started_at, COALESCE(finished_at, '')
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run               Run
			dryRun            int
			started, finished string
		)
		if err := rows.Scan(&run.ID, &run.Operation, &dryRun, &run.Status, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.DryRun = dryRun != 0
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		counts, err := s.counts(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Counts = counts
	}
	return runs, nil
}

func (s *Store) counts(ctx context.Context, runID string) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(1) FROM outcomes WHERE run_id = ? GROUP BY status", runID)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// Outcomes returns the outcomes of a run in recording order, optionally
// filtered to one status.
func (s *Store) Outcomes(ctx context.Context, runID string, status Status) ([]Outcome, error) {
	query := `SELECT run_id, kind, title, source_id, destination_id, status, error_class, detail, recorded_at
		FROM outcomes WHERE run_id = ?`
	args := []any{runID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var (
			o        Outcome
			st       string
			recorded string
		)
		if err := rows.Scan(&o.RunID, &o.Kind, &o.Title, &o.SourceID, &o.DestinationID, &st, &o.ErrorClass, &o.Detail, &recorded); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Status = Status(st)
		o.RecordedAt = parseTime(recorded)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Run fetches a single run by id, or by unique id prefix.
func (s *Store) Run(ctx context.Context, idOrPrefix string) (Run, error) {
	var (
		run               Run
		dryRun            int
		started, finished string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, operation, dry_run, status, started_at, COALESCE(finished_at, '')
		 FROM runs WHERE id = ? OR id LIKE ? ORDER BY started_at DESC LIMIT 1`,
		idOrPrefix, idOrPrefix+"%",
	).Scan(&run.ID, &run.Operation, &dryRun, &run.Status, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q not found", idOrPrefix)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	run.DryRun = dryRun != 0
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.Counts, err = s.counts(ctx, run.ID)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
