package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/listscrape"
)

// DiagnosticPath returns the file a diagnostic is written to.
//
//	page scope:       page_<N>_error.json
//	page_items scope: page_<N>_error_details.json
//	item scope:       page_<N>_item_<I>_error.json
func (s *DatasetStore) DiagnosticPath(d *listscrape.Diagnostic) string {
	var name string
	switch d.Scope {
	case listscrape.ScopeItem:
		name = fmt.Sprintf("page_%d_item_%d_error.json", d.Page, d.Position)
	case listscrape.ScopePageItems:
		name = fmt.Sprintf("page_%d_error_details.json", d.Page)
	default:
		name = fmt.Sprintf("page_%d_error.json", d.Page)
	}
	return filepath.Join(s.backupDir, name)
}

// WriteDiagnostic files d in the backup directory, replacing any diagnostic
// left for the same page or item by an earlier run.
func (s *DatasetStore) WriteDiagnostic(ctx context.Context, d *listscrape.Diagnostic) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.OccurredAt.IsZero() {
		d.OccurredAt = s.now().UTC()
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.DiagnosticPath(d), data, 0644)
}
