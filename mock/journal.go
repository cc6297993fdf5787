package mock

import (
	"context"

	"github.com/fwojciec/listscrape"
)

var _ listscrape.Journal = (*Journal)(nil)

// Journal is a mock implementation of listscrape.Journal.
type Journal struct {
	StartRunFn         func(ctx context.Context, run *listscrape.Run) error
	RecordPageFn       func(ctx context.Context, outcome *listscrape.PageOutcome) error
	FinishRunFn        func(ctx context.Context, run *listscrape.Run) error
	FindRunByIDFn      func(ctx context.Context, id string) (*listscrape.Run, error)
	FindPageOutcomesFn func(ctx context.Context, runID string) ([]*listscrape.PageOutcome, error)
}

func (j *Journal) StartRun(ctx context.Context, run *listscrape.Run) error {
	return j.StartRunFn(ctx, run)
}

func (j *Journal) RecordPage(ctx context.Context, outcome *listscrape.PageOutcome) error {
	return j.RecordPageFn(ctx, outcome)
}

func (j *Journal) FinishRun(ctx context.Context, run *listscrape.Run) error {
	return j.FinishRunFn(ctx, run)
}

func (j *Journal) FindRunByID(ctx context.Context, id string) (*listscrape.Run, error) {
	return j.FindRunByIDFn(ctx, id)
}

func (j *Journal) FindPageOutcomes(ctx context.Context, runID string) ([]*listscrape.PageOutcome, error) {
	return j.FindPageOutcomesFn(ctx, runID)
}
