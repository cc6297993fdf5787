package crawl

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/fwojciec/listscrape"
	"github.com/rotisserie/eris"
)

// PageCollector collects every item of one list page.
type PageCollector struct {
	Config      listscrape.Config
	Items       *ItemCollector
	Diagnostics listscrape.DiagnosticWriter
	Metrics     listscrape.Metrics
	Sleep       SleepFunc
	Log         LogFunc

	// Skipped, if set, is called for every item dropped after exhausting
	// its attempts.
	Skipped func(page, position int, err error)
}

// Collect loads list page pageNumber and collects up to ItemsPerPage items.
//
// An empty batch with a nil error means the page has no triggers. Items that
// fail every attempt are left out of the batch. If the item loop is cut
// short the partial batch is returned with a nil error. The error result is
// reserved for pages that could not be loaded at all.
func (c *PageCollector) Collect(ctx context.Context, page listscrape.Page, pageNumber int) (*listscrape.PageBatch, error) {
	if err := c.load(ctx, page, pageNumber); err != nil {
		return nil, err
	}

	triggers, err := page.QueryAll(ctx, c.Config.Selectors.Trigger)
	if err != nil {
		return nil, eris.Wrapf(err, "querying triggers on page %d", pageNumber)
	}
	c.Log.printf("found %d items on page %d", len(triggers), pageNumber)

	batch := &listscrape.PageBatch{Page: pageNumber}
	if len(triggers) == 0 {
		return batch, nil
	}

	count := min(len(triggers), c.Config.ItemsPerPage)
	if err := c.collectItems(ctx, page, batch, count); err != nil {
		c.fileDiagnostic(ctx, &listscrape.Diagnostic{
			Scope: listscrape.ScopePageItems,
			Page:  pageNumber,
			Error: err.Error(),
			Stack: eris.ToString(err, true),
		})
	}
	return batch, nil
}

// load navigates to the list page, retrying with a fixed delay.
func (c *PageCollector) load(ctx context.Context, page listscrape.Page, pageNumber int) error {
	url := c.Config.ListURL(pageNumber)
	err := Retry(ctx, c.Config.PageLoadAttempts, c.Config.RetryDelay, c.Sleep, func(ctx context.Context, _ int) error {
		return navigate(ctx, page, url, c.Config.NavigationTimeout)
	}, func(attempt int, err error) {
		c.metrics().Retry(listscrape.RetryPageLoad)
		c.Log.printf("  retry page %d (attempt %d): %v", pageNumber, attempt+1, err)
	})
	if err != nil {
		return eris.Wrap(
			listscrape.Errorf(listscrape.ENAVIGATION, "loading page %d failed after %d attempts: %v", pageNumber, c.Config.PageLoadAttempts, err),
			"loading list page",
		)
	}
	return nil
}

// collectItems appends collected records to batch. A returned error, or a
// recovered panic, means the loop stopped early.
func (c *PageCollector) collectItems(ctx context.Context, page listscrape.Page, batch *listscrape.PageBatch, count int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()

	sleep := c.Sleep.orDefault()
	// The list page was just loaded, so the first attempt can use its handles.
	fresh := true

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return eris.Wrapf(err, "collecting page %d stopped at item %d", batch.Page, i+1)
		}
		c.Log.printf("item %d/%d on page %d", i+1, count, batch.Page)

		var record *listscrape.Record
		var attempts int
		itemErr := Retry(ctx, c.Config.ItemAttempts, c.Config.RetryDelay, c.Sleep, func(ctx context.Context, attempt int) error {
			attempts = attempt
			r, err := c.Items.Collect(ctx, page, batch.Page, i, fresh)
			fresh = false
			record = r
			return err
		}, func(attempt int, err error) {
			c.metrics().Retry(listscrape.RetryItem)
			c.Log.printf("  retry item %d (attempt %d): %v", i+1, attempt+1, err)
		})

		switch {
		case ctx.Err() != nil:
			return eris.Wrapf(ctx.Err(), "collecting page %d stopped at item %d", batch.Page, i+1)
		case itemErr != nil:
			c.skip(ctx, batch.Page, i+1, attempts, itemErr)
		case record == nil:
			// The page shrank; there is nothing at this index or beyond.
			return nil
		default:
			batch.Records = append(batch.Records, record)
			c.metrics().ItemCollected()
		}

		if err := sleep(ctx, c.Config.ItemDelay); err != nil {
			return eris.Wrapf(err, "collecting page %d stopped after item %d", batch.Page, i+1)
		}
	}
	return nil
}

// skip records an item that failed every attempt.
func (c *PageCollector) skip(ctx context.Context, pageNumber, position, attempts int, err error) {
	c.Log.printf("  skip item %d on page %d: %v", position, pageNumber, err)
	c.metrics().ItemSkipped()
	c.fileDiagnostic(ctx, &listscrape.Diagnostic{
		Scope:    listscrape.ScopeItem,
		Page:     pageNumber,
		Position: position,
		Attempts: attempts,
		Error:    err.Error(),
		Stack:    eris.ToString(err, true),
	})
	if c.Skipped != nil {
		c.Skipped(pageNumber, position, err)
	}
}

func (c *PageCollector) fileDiagnostic(ctx context.Context, d *listscrape.Diagnostic) {
	if c.Diagnostics == nil {
		return
	}
	if err := c.Diagnostics.WriteDiagnostic(context.WithoutCancel(ctx), d); err != nil {
		c.Log.printf("  writing diagnostic for page %d failed: %v", d.Page, err)
	}
}

func (c *PageCollector) metrics() listscrape.Metrics {
	if c.Metrics == nil {
		return listscrape.NopMetrics{}
	}
	return c.Metrics
}

// panicError carries a recovered panic out of the item loop.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
