// Package slog provides logging decorators for the interaction engine and
// the dataset store.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/listscrape"
)

// Ensure LoggingPage implements listscrape.Page.
var _ listscrape.Page = (*LoggingPage)(nil)

// LoggingPage wraps a Page with debug logging of navigations and clicks.
// Queries and reads are delegated without logging.
type LoggingPage struct {
	next   listscrape.Page
	logger *slog.Logger
}

// NewLoggingPage creates a new LoggingPage.
func NewLoggingPage(next listscrape.Page, logger *slog.Logger) *LoggingPage {
	return &LoggingPage{next: next, logger: logger}
}

// Navigate logs the URL and how long the page took to settle.
func (p *LoggingPage) Navigate(ctx context.Context, url string) (err error) {
	defer func(begin time.Time) {
		p.logger.Debug("navigate",
			"url", url,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return p.next.Navigate(ctx, url)
}

// QueryAll delegates without logging.
func (p *LoggingPage) QueryAll(ctx context.Context, selector string) ([]listscrape.Element, error) {
	return p.next.QueryAll(ctx, selector)
}

// BoundingBox delegates without logging.
func (p *LoggingPage) BoundingBox(ctx context.Context, el listscrape.Element) (*listscrape.Rect, error) {
	return p.next.BoundingBox(ctx, el)
}

// Viewport delegates without logging.
func (p *LoggingPage) Viewport(ctx context.Context) (listscrape.Rect, error) {
	return p.next.Viewport(ctx)
}

// ScrollIntoView delegates without logging.
func (p *LoggingPage) ScrollIntoView(ctx context.Context, el listscrape.Element) error {
	return p.next.ScrollIntoView(ctx, el)
}

// Click logs the element clicked.
func (p *LoggingPage) Click(ctx context.Context, el listscrape.Element) (err error) {
	defer func() {
		p.logger.Debug("click", "element", el.String(), "err", err)
	}()
	return p.next.Click(ctx, el)
}

// Eval logs script failures only.
func (p *LoggingPage) Eval(ctx context.Context, js string, args ...any) (string, error) {
	res, err := p.next.Eval(ctx, js, args...)
	if err != nil {
		p.logger.Debug("eval", "script", js, "err", err)
	}
	return res, err
}

// WaitNavigation logs how long the armed wait blocked.
func (p *LoggingPage) WaitNavigation(ctx context.Context) func() error {
	wait := p.next.WaitNavigation(ctx)
	return func() (err error) {
		defer func(begin time.Time) {
			p.logger.Debug("wait navigation", "duration", time.Since(begin), "err", err)
		}(time.Now())
		return wait()
	}
}

// CurrentURL delegates without logging.
func (p *LoggingPage) CurrentURL(ctx context.Context) (string, error) {
	return p.next.CurrentURL(ctx)
}

// HTML delegates without logging.
func (p *LoggingPage) HTML(ctx context.Context) (string, error) {
	return p.next.HTML(ctx)
}
