// Package fs provides file-based storage for the collected dataset.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/fwojciec/listscrape"
)

// Ensure DatasetStore implements the store interfaces at compile time.
var (
	_ listscrape.DatasetStore     = (*DatasetStore)(nil)
	_ listscrape.DiagnosticWriter = (*DatasetStore)(nil)
)

// DatasetStore keeps the dataset in a single JSON document. Every merge is
// written to a temporary sibling and renamed over the live file, so readers
// only ever see the previous or the next complete document.
type DatasetStore struct {
	path      string
	backupDir string
	logger    *slog.Logger
	now       func() time.Time
	rename    func(oldpath, newpath string) error
}

// StoreOption configures a DatasetStore.
type StoreOption func(*DatasetStore)

// WithLogger sets the logger used to report recovered corruption.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *DatasetStore) {
		s.logger = logger
	}
}

// WithClock sets the time source used to name quarantined files.
func WithClock(now func() time.Time) StoreOption {
	return func(s *DatasetStore) {
		s.now = now
	}
}

// NewDatasetStore creates a store for the document at path. Snapshots,
// diagnostics and quarantined documents go to backupDir.
func NewDatasetStore(path, backupDir string, opts ...StoreOption) *DatasetStore {
	s := &DatasetStore{
		path:      path,
		backupDir: backupDir,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		rename:    os.Rename,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the live document path.
func (s *DatasetStore) Path() string {
	return s.path
}

func (s *DatasetStore) tempPath() string {
	return s.path + ".temp"
}

// Initialize creates the backup directory and makes sure the live document
// is a JSON object. Corruption is quarantined and logged, not returned.
func (s *DatasetStore) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return listscrape.Errorf(listscrape.EINTERNAL, "creating backup directory: %v", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return listscrape.Errorf(listscrape.EINTERNAL, "creating output directory: %v", err)
		}
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.logger.Info("dataset created", "path", s.path)
		return s.reset()
	case err != nil:
		s.logger.Error("dataset unreadable", "path", s.path, "err", err)
		return s.reset()
	case len(bytes.TrimSpace(data)) == 0:
		s.logger.Warn("dataset empty, reinitialized", "path", s.path)
		return s.reset()
	}

	if _, err := parseDocument(data); err != nil {
		backup, qerr := s.quarantine("backup", data)
		if qerr != nil {
			s.logger.Error("quarantine failed", "path", s.path, "err", qerr)
		}
		s.logger.Warn("dataset corrupt, reinitialized",
			"path", s.path,
			"backup", backup,
			"err", err,
		)
		return s.reset()
	}
	return nil
}

// reset replaces the live document with an empty object. Failures are
// logged; Initialize never fails on data problems.
func (s *DatasetStore) reset() error {
	if err := s.writeAtomic([]byte("{}")); err != nil {
		s.logger.Error("dataset reset failed", "path", s.path, "err", err)
	}
	return nil
}

// MergeAndPersist snapshots the batch, then merges it into the document
// under its page number and replaces the live file atomically.
func (s *DatasetStore) MergeAndPersist(ctx context.Context, batch *listscrape.PageBatch) error {
	if batch == nil {
		return listscrape.Errorf(listscrape.EINVALID, "batch required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return listscrape.Errorf(listscrape.EINTERNAL, "encoding page %d: %v", batch.Page, err)
	}

	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return listscrape.Errorf(listscrape.EINTERNAL, "creating backup directory: %v", err)
	}
	if err := os.WriteFile(s.SnapshotPath(batch.Page), encoded, 0644); err != nil {
		return listscrape.Errorf(listscrape.EINTERNAL, "writing snapshot for page %d: %v", batch.Page, err)
	}

	doc := make(document)
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return listscrape.Errorf(listscrape.EINTERNAL, "reading dataset: %v", err)
	case len(bytes.TrimSpace(data)) == 0:
	default:
		parsed, perr := parseDocument(data)
		if perr != nil {
			backup, qerr := s.quarantine("corrupt_data", data)
			if qerr != nil {
				return listscrape.Errorf(listscrape.EINTERNAL, "quarantining corrupt dataset: %v", qerr)
			}
			s.logger.Warn("dataset corrupt, starting from empty",
				"path", s.path,
				"backup", backup,
				"err", perr,
			)
		} else {
			doc = parsed
		}
	}

	doc[listscrape.PageKey(batch.Page)] = encoded

	out, err := doc.encode()
	if err != nil {
		return listscrape.Errorf(listscrape.EINTERNAL, "encoding dataset: %v", err)
	}
	if err := s.writeAtomic(out); err != nil {
		return listscrape.Errorf(listscrape.EINTERNAL, "writing dataset: %v", err)
	}
	return nil
}

// Load returns the persisted dataset keyed by page number.
func (s *DatasetStore) Load(ctx context.Context) (listscrape.Dataset, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, listscrape.Errorf(listscrape.ENOTFOUND, "dataset %s not found", s.path)
	} else if err != nil {
		return nil, err
	}

	dataset := make(listscrape.Dataset)
	if len(bytes.TrimSpace(data)) == 0 {
		return dataset, nil
	}
	doc, err := parseDocument(data)
	if err != nil {
		return nil, listscrape.Errorf(listscrape.EINVALID, "dataset %s: %v", s.path, err)
	}
	for key, raw := range doc {
		page, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		var records []*listscrape.Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, listscrape.Errorf(listscrape.EINVALID, "dataset page %s: %v", key, err)
		}
		dataset[page] = records
	}
	return dataset, nil
}

// SnapshotPath returns where the raw batch for page is written.
func (s *DatasetStore) SnapshotPath(page int) string {
	return filepath.Join(s.backupDir, fmt.Sprintf("page_%d_data.json", page))
}

// writeAtomic writes data to the temp sibling, syncs it, and renames it
// over the live path. The temp file is removed on failure.
func (s *DatasetStore) writeAtomic(data []byte) (err error) {
	tmp := s.tempPath()
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return s.rename(tmp, s.path)
}

// quarantine copies corrupt document bytes to a uniquely named backup file.
func (s *DatasetStore) quarantine(prefix string, data []byte) (string, error) {
	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return "", err
	}
	stamp := s.now().UnixMilli()
	for i := 0; ; i++ {
		name := fmt.Sprintf("%s_%d.json", prefix, stamp)
		if i > 0 {
			name = fmt.Sprintf("%s_%d_%d.json", prefix, stamp, i)
		}
		path := filepath.Join(s.backupDir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		} else if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", err
		}
		return path, f.Close()
	}
}

// document is the parsed top level of the dataset file.
type document map[string]json.RawMessage

func parseDocument(data []byte) (document, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("dataset is not a JSON object")
	}
	return doc, nil
}

// encode writes the document with page keys in ascending numeric order.
// Keys that are not page numbers sort after them.
func (d document) encode() ([]byte, error) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aerr := strconv.Atoi(keys[i])
		b, berr := strconv.Atoi(keys[j])
		switch {
		case aerr == nil && berr == nil:
			return a < b
		case aerr == nil:
			return true
		case berr == nil:
			return false
		}
		return keys[i] < keys[j]
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(d[k])
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
