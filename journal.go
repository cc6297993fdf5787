package listscrape

import (
	"context"
	"time"
)

// Page outcomes recorded in the journal.
const (
	OutcomeSaved  = "saved"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
)

// Run describes one invocation of the crawler.
type Run struct {
	ID         string
	BaseURL    string
	StartPage  int
	MaxPages   int
	StartedAt  time.Time
	FinishedAt time.Time
	Items      int
	Failed     []int
	StopReason string
}

// PageOutcome is the journal entry for one page of a run.
type PageOutcome struct {
	RunID    string
	Page     int
	Outcome  string
	Items    int
	Checksum string
	Error    string
	At       time.Time
}

// Journal keeps an audit trail of runs and page outcomes. It does not feed
// back into crawling; failed pages are never resumed from it.
type Journal interface {
	// StartRun records a new run and assigns its ID.
	StartRun(ctx context.Context, run *Run) error

	// RecordPage appends a page outcome to a run.
	RecordPage(ctx context.Context, outcome *PageOutcome) error

	// FinishRun stores the final counters of a run.
	FinishRun(ctx context.Context, run *Run) error

	// FindRunByID returns a run. Returns ENOTFOUND if it does not exist.
	FindRunByID(ctx context.Context, id string) (*Run, error)

	// FindPageOutcomes returns the outcomes recorded for a run, by page.
	FindPageOutcomes(ctx context.Context, runID string) ([]*PageOutcome, error)
}
