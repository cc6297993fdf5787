package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/listscrape"
	"github.com/fwojciec/listscrape/bloom"
	"github.com/fwojciec/listscrape/crawl"
	"github.com/fwojciec/listscrape/fs"
	"github.com/fwojciec/listscrape/goquery"
	"github.com/fwojciec/listscrape/prometheus"
	lsslog "github.com/fwojciec/listscrape/slog"
	"github.com/fwojciec/listscrape/sqlite"
)

// Run executes the run command.
func (c *RunCmd) Run(deps *Dependencies) error {
	cfg, err := c.config()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", listscrape.ErrorMessage(err))
		return err
	}
	logger := c.logger(deps.Stderr)

	store := fs.NewDatasetStore(cfg.OutputPath, cfg.BackupDir, fs.WithLogger(logger))
	metrics := prometheus.NewMetrics()

	var journal listscrape.Journal
	if c.Journal != "" {
		db := sqlite.NewDB(c.Journal)
		if err := db.Open(); err != nil {
			return fmt.Errorf("failed to open journal at %q: %w", c.Journal, err)
		}
		defer db.Close()
		journal = sqlite.NewJournal(db)
	}

	session, err := deps.OpenSession(cfg)
	if err != nil {
		fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium must be installed")
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer session.Close()

	logf := func(format string, args ...any) {
		fmt.Fprintf(deps.Stdout, format+"\n", args...)
	}
	sleep := crawl.SleepFunc(crawl.Sleep)
	seen := bloom.NewURLSet(uint(max(1, cfg.MaxPages-cfg.StartPage+1)*cfg.ItemsPerPage), 0.001)

	items := &crawl.ItemCollector{
		Config:    cfg,
		Extractor: goquery.NewFieldExtractor(cfg.Selectors),
		Metrics:   metrics,
		Sleep:     sleep,
		Log:       logf,
	}
	crawler := &crawl.Crawler{
		Config: cfg,
		Page:   lsslog.NewLoggingPage(session.Page(), logger),
		Pages: &crawl.PageCollector{
			Config:      cfg,
			Items:       items,
			Diagnostics: store,
			Metrics:     metrics,
			Sleep:       sleep,
			Log:         logf,
		},
		Store:       lsslog.NewLoggingStore(store, logger),
		Diagnostics: store,
		Journal:     journal,
		Metrics:     metrics,
		Seen:        seen,
		Sleep:       sleep,
		Log:         logf,
	}

	begin := time.Now()
	summary, runErr := crawler.Run(deps.Ctx, func(e crawl.ProgressEvent) {
		switch e.Type {
		case crawl.ProgressPageFailed:
			fmt.Fprintf(deps.Stderr, "  page %d failed: %v\n", e.Page, e.Error)
		case crawl.ProgressItemSkipped:
			fmt.Fprintf(deps.Stderr, "  skipped item %d on page %d: %v\n", e.Position, e.Page, e.Error)
		}
	})

	if c.MetricsFile != "" {
		if err := metrics.WriteTextfile(c.MetricsFile); err != nil {
			fmt.Fprintf(deps.Stderr, "warning: writing metrics: %v\n", err)
		}
	}

	if summary != nil {
		printSummary(deps, summary, seen.Len(), store.Path(), time.Since(begin))
	}
	if runErr != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", listscrape.ErrorMessage(runErr))
		return runErr
	}
	return nil
}

func printSummary(deps *Dependencies, s *crawl.Summary, distinct int, path string, elapsed time.Duration) {
	fmt.Fprintf(deps.Stdout, "Collected %d items from %d pages into %s (%s, stopped: %s)\n",
		s.Items, s.Pages, path, elapsed.Round(time.Second), s.StopReason)
	if len(s.FailedPages) > 0 {
		fmt.Fprintf(deps.Stdout, "  Failed pages: %v\n", s.FailedPages)
	}
	if s.Duplicates > 0 {
		fmt.Fprintf(deps.Stdout, "  Repeated detail pages: %d (%d distinct)\n", s.Duplicates, distinct)
	}
	if s.RunID != "" {
		fmt.Fprintf(deps.Stdout, "  Run: %s\n", s.RunID)
	}
}
