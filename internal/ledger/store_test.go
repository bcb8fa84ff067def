package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"jellymigrate/internal/config"
	"jellymigrate/internal/ledger"
)

func openStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.OpenPath(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, "posters", true)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if run.ID == "" || run.Status != ledger.RunRunning {
		t.Fatalf("unexpected run %+v", run)
	}

	outcomes := []ledger.Outcome{
		{RunID: run.ID, Kind: "movie", Title: "Dune (2021)", SourceID: "plex://movie/1", DestinationID: "a1", Status: ledger.StatusMigrated},
		{RunID: run.ID, Kind: "movie", Title: "Heat (1995)", Status: ledger.StatusUnmatched},
		{RunID: run.ID, Kind: "movie", Title: "Alien (1979)", Status: ledger.StatusFailed, ErrorClass: "transport", Detail: "timeout"},
		{RunID: run.ID, Kind: "movie", Title: "Up (2009)", Status: ledger.StatusMigrated},
	}
	for _, o := range outcomes {
		if err := store.Record(ctx, o); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := store.FinishRun(ctx, run.ID, ledger.RunCompleted); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	got := runs[0]
	if got.Status != ledger.RunCompleted || !got.DryRun || got.FinishedAt.IsZero() {
		t.Fatalf("unexpected run summary %+v", got)
	}
	if got.Counts[ledger.StatusMigrated] != 2 || got.Counts[ledger.StatusUnmatched] != 1 || got.Counts[ledger.StatusFailed] != 1 {
		t.Fatalf("unexpected counts %v", got.Counts)
	}

	failed, err := store.Outcomes(ctx, run.ID, ledger.StatusFailed)
	if err != nil {
		t.Fatalf("Outcomes: %v", err)
	}
	if len(failed) != 1 || failed[0].ErrorClass != "transport" || failed[0].Detail != "timeout" {
		t.Fatalf("unexpected failed outcomes %+v", failed)
	}
	all, err := store.Outcomes(ctx, run.ID, "")
	if err != nil {
		t.Fatalf("Outcomes: %v", err)
	}
	if len(all) != 4 || all[0].Title != "Dune (2021)" {
		t.Fatalf("expected recording order, got %+v", all)
	}

	byPrefix, err := store.Run(ctx, run.ID[:8])
	if err != nil {
		t.Fatalf("Run by prefix: %v", err)
	}
	if byPrefix.ID != run.ID {
		t.Fatalf("unexpected run %q", byPrefix.ID)
	}
	if _, err := store.Run(ctx, "does-not-exist"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestRecordRequiresRunID(t *testing.T) {
	store := openStore(t)
	if err := store.Record(context.Background(), ledger.Outcome{Title: "x"}); err == nil {
		t.Fatal("expected error without run id")
	}
}

func TestConcurrentRecords(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run, err := store.BeginRun(ctx, "ratings", false)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Record(ctx, ledger.Outcome{RunID: run.ID, Kind: "track", Title: "t", Status: ledger.StatusMigrated}); err != nil {
				t.Errorf("Record: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Run(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Counts[ledger.StatusMigrated] != 16 {
		t.Fatalf("expected 16 outcomes, got %v", got.Counts)
	}
}

func TestOpenUsesConfiguredStateDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(t.TempDir(), "state")
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	store, err := ledger.Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if store.Path() != cfg.LedgerPath() {
		t.Fatalf("unexpected ledger path %q", store.Path())
	}

	// Reopening an existing ledger keeps the schema.
	again, err := ledger.OpenPath(store.Path())
	if err != nil {
		if errors.Is(err, ledger.ErrSchemaMismatch) {
			t.Fatalf("unexpected schema mismatch: %v", err)
		}
		t.Fatalf("reopen: %v", err)
	}
	_ = again.Close()
}
