package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fwojciec/listscrape"
	"github.com/fwojciec/listscrape/mock"
	lsslog "github.com/fwojciec/listscrape/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingStore_MergeAndPersist(t *testing.T) {
	t.Parallel()

	t.Run("logs page and item count", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.DatasetStore{
			MergeAndPersistFn: func(_ context.Context, _ *listscrape.PageBatch) error { return nil },
		}
		batch := &listscrape.PageBatch{Page: 7, Records: []*listscrape.Record{{}, {}}}

		err := lsslog.NewLoggingStore(inner, logger).MergeAndPersist(context.Background(), batch)

		require.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "level=INFO")
		assert.Contains(t, output, "dataset persist")
		assert.Contains(t, output, "page=7")
		assert.Contains(t, output, "items=2")
	})

	t.Run("logs failures at error level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.DatasetStore{
			MergeAndPersistFn: func(_ context.Context, _ *listscrape.PageBatch) error {
				return errors.New("disk full")
			},
		}

		err := lsslog.NewLoggingStore(inner, logger).MergeAndPersist(context.Background(), nil)

		require.Error(t, err)
		output := buf.String()
		assert.Contains(t, output, "level=ERROR")
		assert.Contains(t, output, "err=\"disk full\"")
	})
}

func TestLoggingStore_Initialize(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	calls := 0
	inner := &mock.DatasetStore{
		InitializeFn: func(_ context.Context) error {
			calls++
			if calls == 2 {
				return errors.New("read-only file system")
			}
			return nil
		},
	}
	s := lsslog.NewLoggingStore(inner, logger)

	require.NoError(t, s.Initialize(context.Background()))
	assert.Empty(t, buf.String())

	require.Error(t, s.Initialize(context.Background()))
	assert.Contains(t, buf.String(), "dataset initialize")
}

func TestLoggingStore_Load(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := &mock.DatasetStore{
		LoadFn: func(_ context.Context) (listscrape.Dataset, error) {
			return listscrape.Dataset{1: nil, 2: nil}, nil
		},
	}

	ds, err := lsslog.NewLoggingStore(inner, debugLogger(&buf)).Load(context.Background())

	require.NoError(t, err)
	assert.Len(t, ds, 2)
	assert.Contains(t, buf.String(), "pages=2")
}
