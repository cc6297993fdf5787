package listscrape

import (
	"context"
	"time"
)

// DatasetStore owns the persisted dataset document.
//
// The live document is always a syntactically valid JSON object. It is
// replaced by rename, never rewritten in place.
type DatasetStore interface {
	// Initialize makes sure a valid document exists. A corrupt document is
	// quarantined and replaced by an empty one rather than reported.
	Initialize(ctx context.Context) error

	// MergeAndPersist writes a snapshot of batch, then sets
	// document[batch.Page] = batch and atomically replaces the document.
	// Merging the same page again overwrites its entry.
	MergeAndPersist(ctx context.Context, batch *PageBatch) error

	// Load returns the persisted dataset.
	Load(ctx context.Context) (Dataset, error)
}

// Diagnostic scopes.
const (
	ScopePage      = "page"       // the page failed and was recorded as failed
	ScopePageItems = "page_items" // the item loop was cut short
	ScopeItem      = "item"       // a single item was dropped
)

// Diagnostic captures an error that was handled by dropping work, so the
// loss stays auditable after the run.
type Diagnostic struct {
	Scope      string    `json:"scope"`
	Page       int       `json:"page"`
	Position   int       `json:"position,omitempty"`
	Attempts   int       `json:"attempts,omitempty"`
	Error      string    `json:"error"`
	Stack      string    `json:"stack,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Validate returns an error if the diagnostic cannot be filed.
func (d *Diagnostic) Validate() error {
	switch d.Scope {
	case ScopePage, ScopePageItems:
	case ScopeItem:
		if d.Position < 1 {
			return Errorf(EINVALID, "item diagnostic requires a position")
		}
	default:
		return Errorf(EINVALID, "unknown diagnostic scope %q", d.Scope)
	}
	if d.Page < 0 {
		return Errorf(EINVALID, "diagnostic page must not be negative")
	}
	return nil
}

// DiagnosticWriter files diagnostics next to the dataset backups.
type DiagnosticWriter interface {
	WriteDiagnostic(ctx context.Context, d *Diagnostic) error
}
