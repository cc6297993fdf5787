// Package crawl provides paginated list crawling orchestration.
// It walks list pages in order, clicks through to every item's detail page,
// and persists each page's records as it completes.
package crawl

import (
	"context"
	"time"

	"github.com/fwojciec/listscrape"
	"github.com/rotisserie/eris"
)

// Reasons a run stopped.
const (
	StopMaxPages  = "max_pages"
	StopEmptyPage = "empty_page"
	StopCanceled  = "canceled"
)

// URLSet reports whether a detail URL was already seen during the run.
type URLSet interface {
	Seen(url string) bool
}

// Crawler orchestrates a crawl over list pages StartPage..MaxPages.
type Crawler struct {
	Config      listscrape.Config
	Page        listscrape.Page
	Pages       *PageCollector
	Store       listscrape.DatasetStore
	Diagnostics listscrape.DiagnosticWriter
	Journal     listscrape.Journal
	Metrics     listscrape.Metrics
	Seen        URLSet
	Sleep       SleepFunc
	Log         LogFunc
	Now         func() time.Time

	// Jitter returns the pause between pages. Defaults to a uniform draw
	// from [PageDelayMin, PageDelayMax].
	Jitter func() time.Duration
}

// Summary holds the outcome of a run.
type Summary struct {
	RunID       string
	Items       int
	Pages       int
	FailedPages []int
	Duplicates  int
	LastPage    int
	StopReason  string
}

// ProgressEvent reports progress during a run.
type ProgressEvent struct {
	Type     ProgressType
	Page     int
	Position int
	Items    int
	Total    int
	Error    error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressPageStarted ProgressType = iota
	ProgressPageSaved
	ProgressPageFailed
	ProgressItemSkipped
	ProgressFinished
)

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// Run crawls the configured page range. It stops at the first page without
// items or after MaxPages. Pages that fail to load or persist are recorded
// in the summary and skipped. On cancellation the summary so far is
// returned together with the context error.
func (c *Crawler) Run(ctx context.Context, progress ProgressFunc) (*Summary, error) {
	emit := func(e ProgressEvent) {
		if progress != nil {
			progress(e)
		}
	}

	if err := c.Store.Initialize(ctx); err != nil {
		return nil, eris.Wrap(err, "initializing dataset")
	}

	now := c.now()
	run := &listscrape.Run{
		BaseURL:   c.Config.BaseURL,
		StartPage: c.Config.StartPage,
		MaxPages:  c.Config.MaxPages,
		StartedAt: now(),
	}
	c.startRun(ctx, run)

	summary := &Summary{RunID: run.ID}

	pages := *c.Pages
	skipped := pages.Skipped
	pages.Skipped = func(page, position int, err error) {
		if skipped != nil {
			skipped(page, position, err)
		}
		emit(ProgressEvent{Type: ProgressItemSkipped, Page: page, Position: position, Total: summary.Items, Error: err})
	}

	sleep := c.Sleep.orDefault()

	for n := c.Config.StartPage; n <= c.Config.MaxPages; n++ {
		if ctx.Err() != nil {
			summary.StopReason = StopCanceled
			break
		}

		c.Log.printf("page %d/%d", n, c.Config.MaxPages)
		emit(ProgressEvent{Type: ProgressPageStarted, Page: n, Total: summary.Items})

		batch, err := pages.Collect(ctx, c.Page, n)
		if err == nil && batch.Len() == 0 {
			if ctx.Err() != nil {
				summary.StopReason = StopCanceled
				break
			}
			c.Log.printf("no items on page %d, stopping", n)
			c.recordPage(ctx, run, n, listscrape.OutcomeEmpty, nil, nil)
			summary.StopReason = StopEmptyPage
			break
		}
		if err == nil {
			// A partial batch collected before cancellation is still saved.
			if perr := c.Store.MergeAndPersist(context.WithoutCancel(ctx), batch); perr != nil {
				err = eris.Wrapf(perr, "persisting page %d", n)
			}
		}

		if err != nil {
			if ctx.Err() != nil && batch == nil {
				summary.StopReason = StopCanceled
				break
			}
			c.fail(ctx, run, summary, n, err)
			emit(ProgressEvent{Type: ProgressPageFailed, Page: n, Total: summary.Items, Error: err})
			if serr := sleep(ctx, c.Config.FailurePenalty); serr != nil {
				summary.StopReason = StopCanceled
				break
			}
			continue
		}

		summary.Items += batch.Len()
		summary.Pages++
		summary.LastPage = n
		summary.Duplicates += c.duplicates(batch)
		c.metrics().PagePersisted(batch.Len())
		c.recordPage(ctx, run, n, listscrape.OutcomeSaved, batch, nil)
		c.Log.printf("saved %d items from page %d (total %d)", batch.Len(), n, summary.Items)
		emit(ProgressEvent{Type: ProgressPageSaved, Page: n, Items: batch.Len(), Total: summary.Items})

		if ctx.Err() != nil {
			summary.StopReason = StopCanceled
			break
		}
		if n < c.Config.MaxPages {
			if err := sleep(ctx, c.jitter()); err != nil {
				summary.StopReason = StopCanceled
				break
			}
		}
	}
	if summary.StopReason == "" {
		summary.StopReason = StopMaxPages
	}

	run.FinishedAt = now()
	run.Items = summary.Items
	run.Failed = summary.FailedPages
	run.StopReason = summary.StopReason
	c.finishRun(ctx, run)

	c.Log.printf("finished: %d items, %d pages, failed pages %v (%s)",
		summary.Items, summary.Pages, summary.FailedPages, summary.StopReason)
	emit(ProgressEvent{Type: ProgressFinished, Page: summary.LastPage, Total: summary.Items})

	if summary.StopReason == StopCanceled {
		return summary, ctx.Err()
	}
	return summary, nil
}

// fail records a page that could not be collected or persisted.
func (c *Crawler) fail(ctx context.Context, run *listscrape.Run, summary *Summary, n int, err error) {
	c.Log.printf("page %d failed: %v", n, err)
	summary.FailedPages = append(summary.FailedPages, n)
	c.metrics().PageFailed()
	c.recordPage(ctx, run, n, listscrape.OutcomeFailed, nil, err)

	if c.Diagnostics == nil {
		return
	}
	d := &listscrape.Diagnostic{
		Scope: listscrape.ScopePage,
		Page:  n,
		Error: err.Error(),
		Stack: eris.ToString(err, true),
	}
	if derr := c.Diagnostics.WriteDiagnostic(context.WithoutCancel(ctx), d); derr != nil {
		c.Log.printf("writing diagnostic for page %d failed: %v", n, derr)
	}
}

// duplicates counts records whose detail URL was already collected earlier
// in the run. Duplicates are kept; they are only reported.
func (c *Crawler) duplicates(batch *listscrape.PageBatch) int {
	if c.Seen == nil {
		return 0
	}
	var n int
	for _, r := range batch.Records {
		if c.Seen.Seen(r.URL) {
			c.Log.printf("  page %d item %d repeats %s", r.Page, r.Position, r.URL)
			n++
		}
	}
	return n
}

func (c *Crawler) startRun(ctx context.Context, run *listscrape.Run) {
	if c.Journal == nil {
		return
	}
	if err := c.Journal.StartRun(ctx, run); err != nil {
		c.Log.printf("journal: starting run failed: %v", err)
	}
}

func (c *Crawler) recordPage(ctx context.Context, run *listscrape.Run, n int, outcome string, batch *listscrape.PageBatch, err error) {
	if c.Journal == nil || run.ID == "" {
		return
	}
	po := &listscrape.PageOutcome{
		RunID:   run.ID,
		Page:    n,
		Outcome: outcome,
		At:      c.now()(),
	}
	if batch != nil {
		po.Items = batch.Len()
		po.Checksum = Checksum(batch)
	}
	if err != nil {
		po.Error = err.Error()
	}
	if jerr := c.Journal.RecordPage(context.WithoutCancel(ctx), po); jerr != nil {
		c.Log.printf("journal: recording page %d failed: %v", n, jerr)
	}
}

func (c *Crawler) finishRun(ctx context.Context, run *listscrape.Run) {
	if c.Journal == nil || run.ID == "" {
		return
	}
	if err := c.Journal.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		c.Log.printf("journal: finishing run failed: %v", err)
	}
}

func (c *Crawler) jitter() time.Duration {
	if c.Jitter != nil {
		return c.Jitter()
	}
	return Uniform(c.Config.PageDelayMin, c.Config.PageDelayMax)
}

func (c *Crawler) now() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	return time.Now
}

func (c *Crawler) metrics() listscrape.Metrics {
	if c.Metrics == nil {
		return listscrape.NopMetrics{}
	}
	return c.Metrics
}
