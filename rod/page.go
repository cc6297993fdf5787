package rod

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/listscrape"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Page implements listscrape.Page at compile time.
var (
	_ listscrape.Page    = (*Page)(nil)
	_ listscrape.Element = (*Element)(nil)
)

// Navigations settle when the network is almost idle: at most two
// connections for half a second.
const settleEvent = proto.PageLifecycleEventNameNetworkAlmostIdle

const viewportScript = `() => ({width: window.innerWidth, height: window.innerHeight})`

const scrollScript = `function() { this.scrollIntoView({behavior: 'smooth', block: 'center', inline: 'center'}) }`

// Element wraps a rod element handle.
type Element struct {
	el       *rod.Element
	selector string
	index    int
}

// String describes the element by the query that found it.
func (e *Element) String() string {
	return fmt.Sprintf("%s[%d]", e.selector, e.index)
}

// Page adapts a rod page to listscrape.Page. It is not safe for concurrent
// use.
type Page struct {
	page *rod.Page
}

// NewPage wraps page.
func NewPage(page *rod.Page) *Page {
	return &Page{page: page}
}

// Navigate loads url and waits for the network to settle.
func (p *Page) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	wait := page.WaitNavigation(settleEvent)
	if err := page.Navigate(url); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

// QueryAll returns every element matching selector, in document order.
func (p *Page) QueryAll(ctx context.Context, selector string) ([]listscrape.Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]listscrape.Element, len(els))
	for i, el := range els {
		out[i] = &Element{el: el, selector: selector, index: i}
	}
	return out, nil
}

// BoundingBox returns the element's border box, or nil when it has no layout.
func (p *Page) BoundingBox(ctx context.Context, el listscrape.Element) (*listscrape.Rect, error) {
	e, err := unwrap(el)
	if err != nil {
		return nil, err
	}
	shape, err := e.Context(ctx).Shape()
	if err != nil {
		// Elements without layout have no quads.
		if strings.Contains(err.Error(), "content quads") {
			return nil, nil
		}
		return nil, err
	}
	box := shape.Box()
	if box == nil {
		return nil, nil
	}
	return &listscrape.Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

// Viewport returns the size of the visible window.
func (p *Page) Viewport(ctx context.Context) (listscrape.Rect, error) {
	res, err := p.page.Context(ctx).Eval(viewportScript)
	if err != nil {
		return listscrape.Rect{}, err
	}
	return listscrape.Rect{
		Width:  res.Value.Get("width").Num(),
		Height: res.Value.Get("height").Num(),
	}, nil
}

// ScrollIntoView smoothly centers the element in the viewport.
func (p *Page) ScrollIntoView(ctx context.Context, el listscrape.Element) error {
	e, err := unwrap(el)
	if err != nil {
		return err
	}
	_, err = e.Context(ctx).Eval(scrollScript)
	return err
}

// Click sends a left mouse click to the element's center.
func (p *Page) Click(ctx context.Context, el listscrape.Element) error {
	e, err := unwrap(el)
	if err != nil {
		return err
	}
	return e.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

// Eval calls the JavaScript function js with args. Elements are passed as
// their remote objects.
func (p *Page) Eval(ctx context.Context, js string, args ...any) (string, error) {
	converted := make([]any, len(args))
	for i, a := range args {
		if el, ok := a.(listscrape.Element); ok {
			e, err := unwrap(el)
			if err != nil {
				return "", err
			}
			converted[i] = e.Object
			continue
		}
		converted[i] = a
	}
	res, err := p.page.Context(ctx).Eval(js, converted...)
	if err != nil {
		return "", err
	}
	return res.Value.JSON("", ""), nil
}

// WaitNavigation arms a wait for the next navigation to settle.
func (p *Page) WaitNavigation(ctx context.Context) func() error {
	wait := p.page.Context(ctx).WaitNavigation(settleEvent)
	return func() error {
		wait()
		return ctx.Err()
	}
}

// CurrentURL returns the URL of the loaded document.
func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// HTML returns the serialized document.
func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func unwrap(el listscrape.Element) (*rod.Element, error) {
	e, ok := el.(*Element)
	if !ok || e.el == nil {
		return nil, listscrape.Errorf(listscrape.EINVALID, "element %v does not belong to this page", el)
	}
	return e.el, nil
}
