package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/fwojciec/listscrape"
	"github.com/fwojciec/listscrape/goquery"
	"github.com/fwojciec/listscrape/mock"
)

const baseURL = "https://example.test/list"

// testConfig returns a configuration with every delay set to a distinct
// tiny value, so sleeps can be told apart by duration.
func testConfig() listscrape.Config {
	cfg := listscrape.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.ItemDelay = 1 * time.Millisecond
	cfg.ScrollDelay = 2 * time.Millisecond
	cfg.SettleDelay = 3 * time.Millisecond
	cfg.RetryDelay = 4 * time.Millisecond
	cfg.FailurePenalty = 5 * time.Millisecond
	cfg.PageDelayMin = 6 * time.Millisecond
	cfg.PageDelayMax = 6 * time.Millisecond
	cfg.NavigationTimeout = time.Second
	return cfg
}

// sleeps records requested pauses without waiting.
type sleeps struct {
	got []time.Duration
}

func (s *sleeps) sleep(ctx context.Context, d time.Duration) error {
	s.got = append(s.got, d)
	return ctx.Err()
}

func (s *sleeps) count(d time.Duration) int {
	var n int
	for _, g := range s.got {
		if g == d {
			n++
		}
	}
	return n
}

// trigger is a list entry handle on the simulated site.
type trigger struct {
	page  int
	index int
}

func (t trigger) String() string {
	return fmt.Sprintf("trigger(page=%d, index=%d)", t.page, t.index)
}

// site simulates a paginated list whose entries open detail pages. Handles
// go stale on navigation, like a real browser.
type site struct {
	items map[int]int

	// nativeClickFails and scriptClickFails make clicks on an item fail.
	nativeClickFails func(page, position int) bool
	scriptClickFails func(page, position int) bool
	// loadFails makes navigation to a list page fail.
	loadFails func(page int) bool
	// detailURL overrides the detail page address.
	detailURL func(page, position int) string

	listPage    int
	generation  int
	detail      *trigger
	navigations []string
	clicks      int
	scripts     int
	scrolls     int
	offscreen   bool
}

func newSite(items map[int]int) *site {
	return &site{items: items}
}

func (s *site) navigate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil {
		return fmt.Errorf("not a list page: %s", rawURL)
	}
	s.navigations = append(s.navigations, rawURL)
	if s.loadFails != nil && s.loadFails(page) {
		return errors.New("net::ERR_CONNECTION_RESET")
	}
	s.listPage = page
	s.detail = nil
	s.generation++
	return nil
}

func (s *site) urlFor(t trigger) string {
	if s.detailURL != nil {
		return s.detailURL(t.page, t.index+1)
	}
	return fmt.Sprintf("https://example.test/detail/%d/%d", t.page, t.index+1)
}

// staleTrigger carries the page generation it was queried in.
type staleTrigger struct {
	trigger
	generation int
}

func (s *site) open(el listscrape.Element, fails func(page, position int) bool) error {
	t, ok := el.(staleTrigger)
	if !ok {
		return fmt.Errorf("unexpected element %v", el)
	}
	if s.detail != nil || t.generation != s.generation {
		return errors.New("node is detached from document")
	}
	if fails != nil && fails(t.page, t.index+1) {
		return errors.New("element is covered by another element")
	}
	s.detail = &t.trigger
	return nil
}

func (s *site) page() *mock.Page {
	return &mock.Page{
		NavigateFn: func(_ context.Context, url string) error {
			return s.navigate(url)
		},
		QueryAllFn: func(_ context.Context, _ string) ([]listscrape.Element, error) {
			if s.detail != nil {
				return nil, nil
			}
			var els []listscrape.Element
			for i := range s.items[s.listPage] {
				els = append(els, staleTrigger{trigger{s.listPage, i}, s.generation})
			}
			return els, nil
		},
		BoundingBoxFn: func(_ context.Context, _ listscrape.Element) (*listscrape.Rect, error) {
			if s.offscreen {
				return &listscrape.Rect{X: 0, Y: 900, Width: 50, Height: 20}, nil
			}
			return &listscrape.Rect{X: 10, Y: 10, Width: 50, Height: 20}, nil
		},
		ViewportFn: func(_ context.Context) (listscrape.Rect, error) {
			return listscrape.Rect{Width: 800, Height: 600}, nil
		},
		ScrollIntoViewFn: func(_ context.Context, _ listscrape.Element) error {
			s.scrolls++
			return nil
		},
		ClickFn: func(_ context.Context, el listscrape.Element) error {
			s.clicks++
			return s.open(el, s.nativeClickFails)
		},
		EvalFn: func(_ context.Context, _ string, args ...any) (string, error) {
			s.scripts++
			if len(args) != 1 {
				return "", errors.New("missing element argument")
			}
			el, _ := args[0].(listscrape.Element)
			return "", s.open(el, s.scriptClickFails)
		},
		WaitNavigationFn: func(ctx context.Context) func() error {
			return func() error {
				if s.detail == nil {
					return context.DeadlineExceeded
				}
				return nil
			}
		},
		CurrentURLFn: func(_ context.Context) (string, error) {
			if s.detail != nil {
				return s.urlFor(*s.detail), nil
			}
			return s.navigations[len(s.navigations)-1], nil
		},
		HTMLFn: func(_ context.Context) (string, error) {
			if s.detail == nil {
				return "<html><body>list</body></html>", nil
			}
			return fmt.Sprintf(`<html><body>
<ul class="list-unstyled"><li><h6><strong>Name</strong></h6><div>Item %d-%d</div></li></ul>
<table class="table"><tr><td>Page</td><td>%d</td></tr></table>
</body></html>`, s.detail.page, s.detail.index+1, s.detail.page), nil
		},
	}
}

func extractor() listscrape.FieldExtractor {
	return goquery.NewFieldExtractor(listscrape.DefaultConfig().Selectors)
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func name(t *testing.T, r *listscrape.Record) string {
	t.Helper()
	v, _ := r.Fields.Get("Name")
	return v
}
