package crawl_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/listscrape"
	"github.com/fwojciec/listscrape/bloom"
	"github.com/fwojciec/listscrape/crawl"
	"github.com/fwojciec/listscrape/fs"
	"github.com/fwojciec/listscrape/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jitter = 42 * time.Millisecond

type harness struct {
	site    *site
	store   *fs.DatasetStore
	sleeps  *sleeps
	crawler *crawl.Crawler
	dir     string
}

func newHarness(t *testing.T, items map[int]int, maxPages int) *harness {
	t.Helper()

	dir := t.TempDir()
	cfg := testConfig()
	cfg.MaxPages = maxPages
	cfg.OutputPath = filepath.Join(dir, "data.json")
	cfg.BackupDir = filepath.Join(dir, "backups")

	h := &harness{
		site:   newSite(items),
		store:  fs.NewDatasetStore(cfg.OutputPath, cfg.BackupDir),
		sleeps: &sleeps{},
		dir:    dir,
	}
	h.crawler = &crawl.Crawler{
		Config:      cfg,
		Page:        h.site.page(),
		Pages:       newPageCollector(cfg, h.sleeps, &diagnostics{}),
		Store:       h.store,
		Diagnostics: h.store,
		Sleep:       h.sleeps.sleep,
		Jitter:      func() time.Duration { return jitter },
		Now:         fixedNow,
	}
	h.crawler.Pages.Diagnostics = h.store
	return h
}

func (h *harness) load(t *testing.T) listscrape.Dataset {
	t.Helper()
	ds, err := h.store.Load(context.Background())
	require.NoError(t, err)
	return ds
}

func (h *harness) backup(name string) string {
	return filepath.Join(h.crawler.Config.BackupDir, name)
}

func TestCrawler_Run(t *testing.T) {
	t.Parallel()

	t.Run("stops at the first empty page", func(t *testing.T) {
		t.Parallel()

		// Story: the site has two pages of entries.
		// Given pages 1 and 2 have items and page 3 has none
		// When the crawler runs with a page limit of 10
		// Then pages 1 and 2 are persisted and the run stops at page 3
		h := newHarness(t, map[int]int{1: 2, 2: 3}, 10)

		summary, err := h.crawler.Run(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 5, summary.Items)
		assert.Equal(t, 2, summary.Pages)
		assert.Equal(t, 2, summary.LastPage)
		assert.Empty(t, summary.FailedPages)
		assert.Equal(t, crawl.StopEmptyPage, summary.StopReason)

		ds := h.load(t)
		assert.Equal(t, []int{1, 2}, ds.Pages())
		assert.Equal(t, 5, ds.Total())
		assert.Equal(t, "Item 2-3", name(t, ds[2][2]))
		assert.FileExists(t, h.backup("page_1_data.json"))
		assert.FileExists(t, h.backup("page_2_data.json"))
		assert.NoFileExists(t, h.backup("page_3_data.json"))
		assert.Equal(t, 2, h.sleeps.count(jitter))
	})

	t.Run("stops after the last page without a trailing delay", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, map[int]int{1: 1, 2: 1, 3: 1}, 2)

		summary, err := h.crawler.Run(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, crawl.StopMaxPages, summary.StopReason)
		assert.Equal(t, 2, summary.Pages)
		assert.Equal(t, []int{1, 2}, h.load(t).Pages())
		assert.Equal(t, 1, h.sleeps.count(jitter))
	})

	t.Run("starts at StartPage", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, map[int]int{1: 1, 2: 1, 3: 1}, 3)
		h.crawler.Config.StartPage = 2

		summary, err := h.crawler.Run(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 2, summary.Pages)
		assert.Equal(t, []int{2, 3}, h.load(t).Pages())
	})

	t.Run("continues past an item that cannot be opened", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, map[int]int{1: 3, 2: 1}, 10)
		h.site.nativeClickFails = func(page, pos int) bool { return page == 1 && pos == 2 }
		h.site.scriptClickFails = h.site.nativeClickFails
		var events []crawl.ProgressEvent

		summary, err := h.crawler.Run(context.Background(), func(e crawl.ProgressEvent) {
			events = append(events, e)
		})

		require.NoError(t, err)
		assert.Equal(t, 3, summary.Items)
		ds := h.load(t)
		require.Len(t, ds[1], 2)
		assert.Equal(t, 1, ds[1][0].Position)
		assert.Equal(t, 3, ds[1][1].Position)
		assert.Len(t, ds[2], 1)
		assert.FileExists(t, h.backup("page_1_item_2_error.json"))

		var skipped []crawl.ProgressEvent
		for _, e := range events {
			if e.Type == crawl.ProgressItemSkipped {
				skipped = append(skipped, e)
			}
		}
		require.Len(t, skipped, 1)
		assert.Equal(t, 1, skipped[0].Page)
		assert.Equal(t, 2, skipped[0].Position)
	})

	t.Run("records failed pages and continues", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, map[int]int{1: 1, 2: 1, 3: 1}, 3)
		h.site.loadFails = func(page int) bool { return page == 2 }
		var failed int
		h.crawler.Metrics = &mock.Metrics{
			ItemCollectedFn: func() {},
			PagePersistedFn: func(int) {},
			PageFailedFn:    func() { failed++ },
		}
		h.crawler.Pages.Metrics = &mock.Metrics{
			ItemCollectedFn: func() {},
			RetryFn:         func(string) {},
		}

		summary, err := h.crawler.Run(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, []int{2}, summary.FailedPages)
		assert.Equal(t, 2, summary.Pages)
		assert.Equal(t, crawl.StopMaxPages, summary.StopReason)
		assert.Equal(t, []int{1, 3}, h.load(t).Pages())
		assert.Equal(t, 1, failed)
		assert.Equal(t, 1, h.sleeps.count(h.crawler.Config.FailurePenalty))

		data, err := os.ReadFile(h.backup("page_2_error.json"))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"scope": "page"`)
		assert.Contains(t, string(data), "loading page 2 failed")
	})

	t.Run("records persist failures as failed pages", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, map[int]int{1: 1, 2: 1}, 2)
		fsStore := h.store
		h.crawler.Store = &mock.DatasetStore{
			InitializeFn: fsStore.Initialize,
			MergeAndPersistFn: func(ctx context.Context, b *listscrape.PageBatch) error {
				if b.Page == 1 {
					return listscrape.Errorf(listscrape.EINTERNAL, "disk full")
				}
				return fsStore.MergeAndPersist(ctx, b)
			},
		}

		summary, err := h.crawler.Run(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, []int{1}, summary.FailedPages)
		assert.Equal(t, 1, summary.Items)
		assert.Equal(t, []int{2}, h.load(t).Pages())
	})

	t.Run("stops when canceled and keeps what was saved", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, map[int]int{1: 1, 2: 1, 3: 1}, 3)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		summary, err := h.crawler.Run(ctx, func(e crawl.ProgressEvent) {
			if e.Type == crawl.ProgressPageSaved && e.Page == 1 {
				cancel()
			}
		})

		require.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, summary)
		assert.Equal(t, crawl.StopCanceled, summary.StopReason)
		assert.Equal(t, 1, summary.Pages)
		assert.Equal(t, []int{1}, h.load(t).Pages())
	})

	t.Run("reports progress in order", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, map[int]int{1: 2}, 5)
		var types []crawl.ProgressType
		var last crawl.ProgressEvent

		_, err := h.crawler.Run(context.Background(), func(e crawl.ProgressEvent) {
			types = append(types, e.Type)
			last = e
		})

		require.NoError(t, err)
		assert.Equal(t, []crawl.ProgressType{
			crawl.ProgressPageStarted,
			crawl.ProgressPageSaved,
			crawl.ProgressPageStarted,
			crawl.ProgressFinished,
		}, types)
		assert.Equal(t, 2, last.Total)
	})

	t.Run("counts repeated detail pages", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, map[int]int{1: 2, 2: 2}, 2)
		// Page 2 lists the same entries as page 1.
		h.site.detailURL = func(_, pos int) string {
			return "https://example.test/detail/" + string(rune('a'+pos))
		}
		h.crawler.Seen = bloom.NewURLSet(100, 0.001)

		summary, err := h.crawler.Run(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, 2, summary.Duplicates)
		assert.Equal(t, 4, summary.Items)
	})

	t.Run("keeps pages from earlier runs", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, map[int]int{5: 1}, 5)
		require.NoError(t, h.store.Initialize(context.Background()))
		require.NoError(t, h.store.MergeAndPersist(context.Background(), &listscrape.PageBatch{
			Page:    9,
			Records: []*listscrape.Record{{URL: "https://example.test/old", Page: 9, Position: 1, CollectedAt: fixedNow(), Fields: listscrape.NewFields("Name", "old")}},
		}))
		h.crawler.Config.StartPage = 5

		_, err := h.crawler.Run(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, []int{5, 9}, h.load(t).Pages())
	})

	t.Run("returns initialization errors", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, map[int]int{1: 1}, 1)
		h.crawler.Store = &mock.DatasetStore{
			InitializeFn: func(context.Context) error {
				return listscrape.Errorf(listscrape.EINTERNAL, "read-only")
			},
		}

		summary, err := h.crawler.Run(context.Background(), nil)

		require.Error(t, err)
		assert.Nil(t, summary)
		assert.Zero(t, h.site.clicks)
	})
}

func TestCrawler_Journal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[int]int{1: 2, 2: 1}, 3)
	h.site.loadFails = func(page int) bool { return page == 2 }

	var started, finished *listscrape.Run
	var outcomes []*listscrape.PageOutcome
	h.crawler.Journal = &mock.Journal{
		StartRunFn: func(_ context.Context, run *listscrape.Run) error {
			run.ID = "run-1"
			started = run
			return nil
		},
		RecordPageFn: func(_ context.Context, o *listscrape.PageOutcome) error {
			outcomes = append(outcomes, o)
			return nil
		},
		FinishRunFn: func(_ context.Context, run *listscrape.Run) error {
			finished = run
			return nil
		},
	}

	summary, err := h.crawler.Run(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, "run-1", summary.RunID)
	require.NotNil(t, started)
	assert.Equal(t, baseURL, started.BaseURL)
	require.NotNil(t, finished)
	assert.Equal(t, 2, finished.Items)
	assert.Equal(t, []int{2}, finished.Failed)
	assert.Equal(t, crawl.StopEmptyPage, finished.StopReason)
	assert.Equal(t, fixedNow(), finished.FinishedAt)

	require.Len(t, outcomes, 3)
	assert.Equal(t, listscrape.OutcomeSaved, outcomes[0].Outcome)
	assert.Equal(t, 2, outcomes[0].Items)
	assert.NotEmpty(t, outcomes[0].Checksum)
	assert.Equal(t, listscrape.OutcomeFailed, outcomes[1].Outcome)
	assert.NotEmpty(t, outcomes[1].Error)
	assert.Equal(t, listscrape.OutcomeEmpty, outcomes[2].Outcome)
	assert.Equal(t, 3, outcomes[2].Page)
	for _, o := range outcomes {
		assert.Equal(t, "run-1", o.RunID)
	}
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	batch := func(at time.Time, value string) *listscrape.PageBatch {
		return &listscrape.PageBatch{Page: 1, Records: []*listscrape.Record{
			{URL: "https://example.test/a", Page: 1, Position: 1, CollectedAt: at, Fields: listscrape.NewFields("K", value)},
		}}
	}

	a := crawl.Checksum(batch(fixedNow(), "v"))
	assert.Equal(t, a, crawl.Checksum(batch(fixedNow().Add(time.Hour), "v")))
	assert.NotEqual(t, a, crawl.Checksum(batch(fixedNow(), "w")))
	assert.NotEqual(t, a, crawl.Checksum(&listscrape.PageBatch{Page: 1}))
}
