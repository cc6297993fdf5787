package listscrape

import "context"

// Element is an opaque handle to a DOM node on the current document.
// Handles are only valid until the next navigation; any holder must query
// again after the page has navigated.
type Element interface {
	// String describes the element for logs.
	String() string
}

// Rect is an element box or viewport in CSS pixels, relative to the viewport.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Contains reports whether r lies entirely inside outer.
func (outer Rect) Contains(r Rect) bool {
	return r.X >= outer.X &&
		r.Y >= outer.Y &&
		r.X+r.Width <= outer.X+outer.Width &&
		r.Y+r.Height <= outer.Y+outer.Height
}

// Page is the interaction engine seen by the collectors: a single browser
// tab that can be navigated, queried and clicked.
//
// Calls are blocking and must not be issued concurrently. Each call is
// bounded by the context it receives.
type Page interface {
	// Navigate loads url and waits until the network is idle.
	Navigate(ctx context.Context, url string) error

	// QueryAll returns all elements matching the CSS selector.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// BoundingBox returns the element's box, or nil if it is not rendered.
	BoundingBox(ctx context.Context, el Element) (*Rect, error)

	// Viewport returns the visible area of the page.
	Viewport(ctx context.Context) (Rect, error)

	// ScrollIntoView smoothly scrolls the element to the viewport center.
	ScrollIntoView(ctx context.Context, el Element) error

	// Click performs a native mouse click on the element.
	Click(ctx context.Context, el Element) error

	// Eval runs a JavaScript function in the page. Element arguments are
	// passed to the function as DOM nodes. The result is returned as JSON.
	Eval(ctx context.Context, js string, args ...any) (string, error)

	// WaitNavigation arms a wait for the next navigation to settle and
	// returns a function that blocks until it does or ctx is done.
	// It must be called before the action that triggers the navigation.
	WaitNavigation(ctx context.Context) func() error

	// CurrentURL returns the URL of the loaded document.
	CurrentURL(ctx context.Context) (string, error)

	// HTML returns the rendered HTML of the loaded document.
	HTML(ctx context.Context) (string, error)
}

// Session owns the browser behind a Page.
type Session interface {
	// Page returns the single page used for the run.
	Page() Page

	// Close releases browser resources. Close is safe to call more than once.
	Close() error
}
