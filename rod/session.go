// Package rod implements the interaction engine on top of Chrome using
// go-rod.
package rod

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/listscrape"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Session implements listscrape.Session at compile time.
var _ listscrape.Session = (*Session)(nil)

// Session owns one browser and the single page used for a run.
//
// Session is safe for concurrent use; the Page it hands out is not.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *Page
	router   *rod.HijackRouter
	mu       sync.Mutex
	closed   atomic.Bool

	headless bool
	block    bool
	bin      string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithHeadless sets whether the browser runs without a window.
// Defaults to true.
func WithHeadless(v bool) SessionOption {
	return func(s *Session) {
		s.headless = v
	}
}

// WithBlockedResources sets whether images, stylesheets, fonts and media
// are aborted before they are requested. Defaults to true.
func WithBlockedResources(v bool) SessionOption {
	return func(s *Session) {
		s.block = v
	}
}

// WithBrowserBin sets the Chrome binary to launch instead of the one the
// launcher finds or downloads.
func WithBrowserBin(path string) SessionOption {
	return func(s *Session) {
		s.bin = path
	}
}

// NewSession launches a browser and opens the page used for the run.
// Close must be called when the Session is no longer needed.
func NewSession(opts ...SessionOption) (*Session, error) {
	s := &Session{
		headless: true,
		block:    true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.launch(); err != nil {
		return nil, err
	}
	return s, nil
}

// Page returns the page used for the run.
func (s *Session) Page() listscrape.Page {
	return s.page
}

// Close releases browser resources. Close is safe to call multiple times.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.router != nil {
		_ = s.router.Stop()
		s.router = nil
	}
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher = nil
	}
	return err
}

// LauncherPID returns the process ID of the browser launcher.
func (s *Session) LauncherPID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.launcher == nil {
		return 0
	}
	return s.launcher.PID()
}

// launch starts the browser with stability flags and opens the page.
func (s *Session) launch() error {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Set("disable-features", "site-per-process").
		Leakless(true).
		Headless(s.headless)
	if s.bin != "" {
		l = l.Bin(s.bin)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connecting to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return fmt.Errorf("opening page: %w", err)
	}

	if s.block {
		router, err := blockResources(page)
		if err != nil {
			_ = browser.Close()
			l.Kill()
			return fmt.Errorf("blocking resources: %w", err)
		}
		s.router = router
	}

	s.browser = browser
	s.launcher = l
	s.page = NewPage(page)
	return nil
}
