package migrate

import (
	"slices"
	"time"

	"jellymigrate/internal/catalog"
	"jellymigrate/internal/ledger"
)

// Tally keys for outcomes that are not library items.
const (
	KindPlaylist catalog.Kind = "playlist"
	KindUser     catalog.Kind = "user"
)

// Result is the outcome of one item.
type Result struct {
	Kind          catalog.Kind
	Title         string
	SourceID      string
	DestinationID string
	Status        ledger.Status
	Detail        string
	Err           error
}

// Credential is an account created on the destination server. Password is
// empty when none was generated or setting it failed.
type Credential struct {
	Username string
	UserID   string
	Password string
}

// Report summarizes one operation.
type Report struct {
	Operation   string
	RunID       string
	DryRun      bool
	StartedAt   time.Time
	Elapsed     time.Duration
	Counts      map[catalog.Kind]map[ledger.Status]int
	Credentials []Credential
	Files       []string
}

func newReport(operation, runID string, dryRun bool) *Report {
	return &Report{
		Operation: operation,
		RunID:     runID,
		DryRun:    dryRun,
		StartedAt: time.Now(),
		Counts:    make(map[catalog.Kind]map[ledger.Status]int),
	}
}

func (r *Report) add(kind catalog.Kind, status ledger.Status) {
	byStatus, ok := r.Counts[kind]
	if !ok {
		byStatus = make(map[ledger.Status]int)
		r.Counts[kind] = byStatus
	}
	byStatus[status]++
}

// Count returns the number of kind items that ended with status.
func (r *Report) Count(kind catalog.Kind, status ledger.Status) int {
	return r.Counts[kind][status]
}

// Total returns the number of items across all kinds that ended with status.
func (r *Report) Total(status ledger.Status) int {
	total := 0
	for _, byStatus := range r.Counts {
		total += byStatus[status]
	}
	return total
}

// Items returns the number of items processed of kind.
func (r *Report) Items(kind catalog.Kind) int {
	total := 0
	for _, n := range r.Counts[kind] {
		total += n
	}
	return total
}

// Kinds returns the tallied kinds, library kinds first in traversal order.
func (r *Report) Kinds() []catalog.Kind {
	order := append(slices.Clone(catalog.Kinds), KindPlaylist, KindUser)
	out := make([]catalog.Kind, 0, len(r.Counts))
	for _, kind := range order {
		if _, ok := r.Counts[kind]; ok {
			out = append(out, kind)
		}
	}
	return out
}
