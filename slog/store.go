package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/listscrape"
)

// Ensure LoggingStore implements listscrape.DatasetStore.
var _ listscrape.DatasetStore = (*LoggingStore)(nil)

// LoggingStore wraps a DatasetStore with logging of every persisted page.
type LoggingStore struct {
	next   listscrape.DatasetStore
	logger *slog.Logger
}

// NewLoggingStore creates a new LoggingStore.
func NewLoggingStore(next listscrape.DatasetStore, logger *slog.Logger) *LoggingStore {
	return &LoggingStore{next: next, logger: logger}
}

// Initialize logs failures only.
func (s *LoggingStore) Initialize(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			s.logger.Error("dataset initialize", "err", err)
		}
	}()
	return s.next.Initialize(ctx)
}

// MergeAndPersist logs the page, item count and duration of each merge.
func (s *LoggingStore) MergeAndPersist(ctx context.Context, batch *listscrape.PageBatch) (err error) {
	defer func(begin time.Time) {
		var page, items int
		if batch != nil {
			page, items = batch.Page, batch.Len()
		}
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "dataset persist",
			"page", page,
			"items", items,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.MergeAndPersist(ctx, batch)
}

// Load logs the number of pages read.
func (s *LoggingStore) Load(ctx context.Context) (ds listscrape.Dataset, err error) {
	defer func() {
		s.logger.Debug("dataset load", "pages", len(ds), "err", err)
	}()
	return s.next.Load(ctx)
}
