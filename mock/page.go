package mock

import (
	"context"

	"github.com/fwojciec/listscrape"
)

// Compile-time interface verification.
var (
	_ listscrape.Page    = (*Page)(nil)
	_ listscrape.Session = (*Session)(nil)
	_ listscrape.Element = (*Element)(nil)
)

// Page is a mock implementation of listscrape.Page.
type Page struct {
	NavigateFn       func(ctx context.Context, url string) error
	QueryAllFn       func(ctx context.Context, selector string) ([]listscrape.Element, error)
	BoundingBoxFn    func(ctx context.Context, el listscrape.Element) (*listscrape.Rect, error)
	ViewportFn       func(ctx context.Context) (listscrape.Rect, error)
	ScrollIntoViewFn func(ctx context.Context, el listscrape.Element) error
	ClickFn          func(ctx context.Context, el listscrape.Element) error
	EvalFn           func(ctx context.Context, js string, args ...any) (string, error)
	WaitNavigationFn func(ctx context.Context) func() error
	CurrentURLFn     func(ctx context.Context) (string, error)
	HTMLFn           func(ctx context.Context) (string, error)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.NavigateFn(ctx, url)
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]listscrape.Element, error) {
	return p.QueryAllFn(ctx, selector)
}

func (p *Page) BoundingBox(ctx context.Context, el listscrape.Element) (*listscrape.Rect, error) {
	return p.BoundingBoxFn(ctx, el)
}

func (p *Page) Viewport(ctx context.Context) (listscrape.Rect, error) {
	return p.ViewportFn(ctx)
}

func (p *Page) ScrollIntoView(ctx context.Context, el listscrape.Element) error {
	return p.ScrollIntoViewFn(ctx, el)
}

func (p *Page) Click(ctx context.Context, el listscrape.Element) error {
	return p.ClickFn(ctx, el)
}

func (p *Page) Eval(ctx context.Context, js string, args ...any) (string, error) {
	return p.EvalFn(ctx, js, args...)
}

func (p *Page) WaitNavigation(ctx context.Context) func() error {
	return p.WaitNavigationFn(ctx)
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	return p.CurrentURLFn(ctx)
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.HTMLFn(ctx)
}

// Session is a mock implementation of listscrape.Session.
type Session struct {
	PageFn  func() listscrape.Page
	CloseFn func() error
}

func (s *Session) Page() listscrape.Page {
	return s.PageFn()
}

func (s *Session) Close() error {
	return s.CloseFn()
}

// Element is a named element handle for tests.
type Element struct {
	Name string
}

func (e *Element) String() string {
	return e.Name
}
