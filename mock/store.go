package mock

import (
	"context"

	"github.com/fwojciec/listscrape"
)

// Compile-time interface verification.
var (
	_ listscrape.DatasetStore     = (*DatasetStore)(nil)
	_ listscrape.DiagnosticWriter = (*DiagnosticWriter)(nil)
)

// DatasetStore is a mock implementation of listscrape.DatasetStore.
type DatasetStore struct {
	InitializeFn      func(ctx context.Context) error
	MergeAndPersistFn func(ctx context.Context, batch *listscrape.PageBatch) error
	LoadFn            func(ctx context.Context) (listscrape.Dataset, error)
}

func (s *DatasetStore) Initialize(ctx context.Context) error {
	return s.InitializeFn(ctx)
}

func (s *DatasetStore) MergeAndPersist(ctx context.Context, batch *listscrape.PageBatch) error {
	return s.MergeAndPersistFn(ctx, batch)
}

func (s *DatasetStore) Load(ctx context.Context) (listscrape.Dataset, error) {
	return s.LoadFn(ctx)
}

// DiagnosticWriter is a mock implementation of listscrape.DiagnosticWriter.
type DiagnosticWriter struct {
	WriteDiagnosticFn func(ctx context.Context, d *listscrape.Diagnostic) error
}

func (w *DiagnosticWriter) WriteDiagnostic(ctx context.Context, d *listscrape.Diagnostic) error {
	return w.WriteDiagnosticFn(ctx, d)
}
