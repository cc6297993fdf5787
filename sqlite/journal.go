package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fwojciec/listscrape"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ listscrape.Journal = (*Journal)(nil)

// Journal implements listscrape.Journal using SQLite.
type Journal struct {
	db *DB
}

// NewJournal creates a new Journal.
func NewJournal(db *DB) *Journal {
	return &Journal{db: db}
}

// StartRun inserts run and assigns it a new ID.
func (j *Journal) StartRun(ctx context.Context, run *listscrape.Run) error {
	if run.BaseURL == "" {
		return listscrape.Errorf(listscrape.EINVALID, "run base URL required")
	}
	if run.StartedAt.IsZero() {
		return listscrape.Errorf(listscrape.EINVALID, "run start time required")
	}

	run.ID = uuid.New().String()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, base_url, start_page, max_pages, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.BaseURL, run.StartPage, run.MaxPages, formatTime(run.StartedAt))
	return err
}

// RecordPage appends outcome to its run.
func (j *Journal) RecordPage(ctx context.Context, outcome *listscrape.PageOutcome) error {
	switch outcome.Outcome {
	case listscrape.OutcomeSaved, listscrape.OutcomeEmpty, listscrape.OutcomeFailed:
	default:
		return listscrape.Errorf(listscrape.EINVALID, "unknown page outcome %q", outcome.Outcome)
	}
	if err := j.requireRun(ctx, outcome.RunID); err != nil {
		return err
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO page_outcomes (run_id, page, outcome, items, checksum, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, outcome.RunID, outcome.Page, outcome.Outcome, outcome.Items, outcome.Checksum,
		outcome.Error, formatTime(outcome.At))
	return err
}

// FinishRun stores the final counters of run.
func (j *Journal) FinishRun(ctx context.Context, run *listscrape.Run) error {
	res, err := j.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, items = ?, failed_pages = ?, stop_reason = ?
		WHERE id = ?
	`, formatTime(run.FinishedAt), run.Items, formatPages(run.Failed), run.StopReason, run.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return listscrape.Errorf(listscrape.ENOTFOUND, "run not found")
	}
	return nil
}

// FindRunByID retrieves a run by ID.
func (j *Journal) FindRunByID(ctx context.Context, id string) (*listscrape.Run, error) {
	var run listscrape.Run
	var startedAt, finishedAt, failed string

	err := j.db.QueryRowContext(ctx, `
		SELECT id, base_url, start_page, max_pages, started_at, finished_at, items, failed_pages, stop_reason
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.BaseURL, &run.StartPage, &run.MaxPages, &startedAt, &finishedAt,
		&run.Items, &failed, &run.StopReason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, listscrape.Errorf(listscrape.ENOTFOUND, "run not found")
	}
	if err != nil {
		return nil, err
	}

	if run.StartedAt, err = parseTime(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseTime(finishedAt, "finished_at"); err != nil {
		return nil, err
	}
	if run.Failed, err = parsePages(failed); err != nil {
		return nil, err
	}
	return &run, nil
}

// FindPageOutcomes returns the outcomes recorded for a run in the order
// they were recorded.
func (j *Journal) FindPageOutcomes(ctx context.Context, runID string) ([]*listscrape.PageOutcome, error) {
	if err := j.requireRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, page, outcome, items, checksum, error, recorded_at
		FROM page_outcomes
		WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []*listscrape.PageOutcome
	for rows.Next() {
		var o listscrape.PageOutcome
		var at string
		if err := rows.Scan(&o.RunID, &o.Page, &o.Outcome, &o.Items, &o.Checksum, &o.Error, &at); err != nil {
			return nil, err
		}
		if o.At, err = parseTime(at, "recorded_at"); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, &o)
	}
	return outcomes, rows.Err()
}

func (j *Journal) requireRun(ctx context.Context, id string) error {
	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return listscrape.Errorf(listscrape.ENOTFOUND, "run not found")
	}
	return nil
}
