package crawl

import (
	"context"
	"time"

	"github.com/fwojciec/listscrape"
	"github.com/rotisserie/eris"
)

// clickScript clicks through the DOM instead of the input pipeline.
const clickScript = `(el) => el.click()`

// ItemCollector collects one entity by clicking through to its detail page.
//
// Element handles do not survive navigation. Unless the caller passes
// fresh=true, meaning the list page was loaded and nothing has navigated
// since, Collect reloads the list page before querying triggers again.
type ItemCollector struct {
	Config    listscrape.Config
	Extractor listscrape.FieldExtractor
	Metrics   listscrape.Metrics
	Sleep     SleepFunc
	Log       LogFunc
	Now       func() time.Time
}

// Collect returns the record for the trigger at index on list page
// pageNumber. It returns (nil, nil) when the page no longer has a trigger at
// that index. An error means the item could not be collected this time;
// the caller may retry the whole collection.
func (c *ItemCollector) Collect(ctx context.Context, page listscrape.Page, pageNumber, index int, fresh bool) (*listscrape.Record, error) {
	sleep := c.Sleep.orDefault()
	position := index + 1

	if !fresh {
		if err := navigate(ctx, page, c.Config.ListURL(pageNumber), c.Config.NavigationTimeout); err != nil {
			return nil, eris.Wrapf(err, "reloading list page %d", pageNumber)
		}
		if err := sleep(ctx, c.Config.SettleDelay); err != nil {
			return nil, err
		}
	}

	triggers, err := page.QueryAll(ctx, c.Config.Selectors.Trigger)
	if err != nil {
		return nil, eris.Wrapf(err, "querying triggers on page %d", pageNumber)
	}
	if index >= len(triggers) {
		c.Log.printf("  no trigger for item %d on page %d", position, pageNumber)
		return nil, nil
	}
	el := triggers[index]

	if err := c.ensureVisible(ctx, page, el); err != nil {
		return nil, eris.Wrapf(err, "scrolling item %d into view", position)
	}

	if err := c.open(ctx, page, el, position); err != nil {
		return nil, err
	}

	detailURL, err := page.CurrentURL(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "reading detail URL of item %d", position)
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "reading detail page of item %d", position)
	}
	fields, err := c.Extractor.Extract(html)
	if err != nil {
		return nil, eris.Wrapf(err, "extracting item %d", position)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return &listscrape.Record{
		URL:         detailURL,
		Page:        pageNumber,
		Position:    position,
		CollectedAt: now().UTC(),
		Fields:      fields,
	}, nil
}

// ensureVisible scrolls el into the viewport unless it is already fully
// inside it.
func (c *ItemCollector) ensureVisible(ctx context.Context, page listscrape.Page, el listscrape.Element) error {
	box, err := page.BoundingBox(ctx, el)
	if err != nil {
		return err
	}
	if box != nil {
		viewport, err := page.Viewport(ctx)
		if err != nil {
			return err
		}
		if viewport.Contains(*box) {
			return nil
		}
	}
	if err := page.ScrollIntoView(ctx, el); err != nil {
		return err
	}
	return c.Sleep.orDefault()(ctx, c.Config.ScrollDelay)
}

// open clicks el and waits for the detail page. Every attempt races a native
// click against the navigation timeout; the penultimate attempt falls back to
// a script click when the native one fails.
func (c *ItemCollector) open(ctx context.Context, page listscrape.Page, el listscrape.Element, position int) error {
	attempts := c.Config.ClickAttempts
	err := Retry(ctx, attempts, c.Config.RetryDelay, c.Sleep, func(ctx context.Context, attempt int) error {
		err := c.clickAndWait(ctx, page, el, false)
		if err == nil || attempt != attempts-1 {
			return err
		}
		c.Log.printf("  item %d: native click failed, trying script click: %v", position, err)
		if serr := c.clickAndWait(ctx, page, el, true); serr != nil {
			c.Log.printf("  item %d: script click failed: %v", position, serr)
			return serr
		}
		return nil
	}, func(attempt int, err error) {
		c.metrics().Retry(listscrape.RetryClick)
		c.Log.printf("  retry click on item %d (attempt %d): %v", position, attempt+1, err)
	})
	if err != nil {
		return eris.Wrap(
			listscrape.Errorf(listscrape.ECLICK, "opening item %d failed after %d attempts: %v", position, attempts, err),
			"opening detail page",
		)
	}
	return nil
}

// clickAndWait arms the navigation wait, clicks, and waits. Both steps share
// one timeout.
func (c *ItemCollector) clickAndWait(ctx context.Context, page listscrape.Page, el listscrape.Element, scripted bool) error {
	ctx, cancel := context.WithTimeout(ctx, c.Config.NavigationTimeout)
	defer cancel()

	wait := page.WaitNavigation(ctx)
	var err error
	if scripted {
		_, err = page.Eval(ctx, clickScript, el)
	} else {
		err = page.Click(ctx, el)
	}
	if err != nil {
		return err
	}
	return wait()
}

func (c *ItemCollector) metrics() listscrape.Metrics {
	if c.Metrics == nil {
		return listscrape.NopMetrics{}
	}
	return c.Metrics
}

// navigate loads url bounded by timeout.
func navigate(ctx context.Context, page listscrape.Page, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return page.Navigate(ctx, url)
}
