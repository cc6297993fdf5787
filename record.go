package listscrape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Provenance keys written ahead of the extracted fields of every record.
const (
	KeyURL         = "url"
	KeyPage        = "page"
	KeyPosition    = "position"
	KeyCollectedAt = "collected_at"
)

// TimestampFormat is the ISO-8601 layout used for CollectedAt.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Fields is an ordered mapping of field name to field value.
// The schema is whatever the site exposes; a missing key is not an error.
// The zero value is ready to use.
type Fields struct {
	keys   []string
	values map[string]string
}

// NewFields returns Fields populated from alternating key/value pairs.
// It panics on an odd number of arguments.
func NewFields(kv ...string) *Fields {
	if len(kv)%2 != 0 {
		panic("listscrape: NewFields requires key/value pairs")
	}
	f := &Fields{}
	for i := 0; i < len(kv); i += 2 {
		f.Set(kv[i], kv[i+1])
	}
	return f
}

// Set assigns value to key. An existing key keeps its position.
func (f *Fields) Set(key, value string) {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value stored for key.
func (f *Fields) Get(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.values[key]
	return v, ok
}

// Has reports whether key is present.
func (f *Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.keys...)
}

// Len returns the number of fields.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Merge overlays other onto f. Values from other win on collision.
func (f *Fields) Merge(other *Fields) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		f.Set(k, other.values[k])
	}
}

// Map returns a copy of the fields as a plain map.
func (f *Fields) Map() map[string]string {
	m := make(map[string]string, f.Len())
	if f == nil {
		return m
	}
	for k, v := range f.values {
		m[k] = v
	}
	return m
}

// MarshalJSON encodes the fields as a JSON object in insertion order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writePair(&buf, k, f.values[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of strings, keeping document order.
func (f *Fields) UnmarshalJSON(data []byte) error {
	*f = Fields{}
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		f.Set(key, v)
		return nil
	})
}

// Record is one collected entity: its extracted fields plus provenance.
// A Record is not modified after it is returned by the collector.
type Record struct {
	URL         string
	Page        int
	Position    int // 1-based position on the list page
	CollectedAt time.Time
	Fields      *Fields
}

// MarshalJSON flattens the record into a single object. Provenance keys come
// first and take precedence over extracted fields with the same name.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writePair(&buf, KeyURL, r.URL); err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, ",%q:%d,%q:%d,", KeyPage, r.Page, KeyPosition, r.Position)
	if err := writePair(&buf, KeyCollectedAt, r.CollectedAt.UTC().Format(TimestampFormat)); err != nil {
		return nil, err
	}
	for _, k := range r.Fields.Keys() {
		if isProvenanceKey(k) {
			continue
		}
		v, _ := r.Fields.Get(k)
		buf.WriteByte(',')
		if err := writePair(&buf, k, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores a record written by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	*r = Record{Fields: &Fields{}}
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		var err error
		switch key {
		case KeyURL:
			err = json.Unmarshal(raw, &r.URL)
		case KeyPage:
			err = json.Unmarshal(raw, &r.Page)
		case KeyPosition:
			err = json.Unmarshal(raw, &r.Position)
		case KeyCollectedAt:
			var s string
			if err = json.Unmarshal(raw, &s); err == nil {
				r.CollectedAt, err = time.Parse(time.RFC3339Nano, s)
			}
		default:
			var v string
			if v, err = fieldValue(raw); err == nil {
				r.Fields.Set(key, v)
			}
		}
		if err != nil {
			return fmt.Errorf("record key %q: %w", key, err)
		}
		return nil
	})
}

// fieldValue returns a field as text. Strings are unquoted; numbers and
// booleans keep their JSON spelling; null is empty. Objects and arrays are
// rejected.
func fieldValue(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", fmt.Errorf("empty value")
	}
	switch raw[0] {
	case '"':
		var v string
		err := json.Unmarshal(raw, &v)
		return v, err
	case '{', '[':
		return "", fmt.Errorf("nested values are not supported")
	case 'n':
		return "", nil
	}
	return string(raw), nil
}

func isProvenanceKey(k string) bool {
	switch k {
	case KeyURL, KeyPage, KeyPosition, KeyCollectedAt:
		return true
	}
	return false
}

// PageBatch holds the records collected from one list page, in list order.
// An empty batch means the site has no more data.
type PageBatch struct {
	Page    int
	Records []*Record
}

// Len returns the number of records in the batch.
func (b *PageBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}

// MarshalJSON encodes the batch as an array of records.
func (b *PageBatch) MarshalJSON() ([]byte, error) {
	records := b.Records
	if records == nil {
		records = []*Record{}
	}
	return json.Marshal(records)
}

// Dataset maps page numbers to the records persisted for them.
type Dataset map[int][]*Record

// Pages returns the page numbers in ascending order.
func (d Dataset) Pages() []int {
	pages := make([]int, 0, len(d))
	for p := range d {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// Total returns the number of records across all pages.
func (d Dataset) Total() int {
	var n int
	for _, records := range d {
		n += len(records)
	}
	return n
}

// PageKey formats a page number as a dataset document key.
func PageKey(page int) string {
	return strconv.Itoa(page)
}

func writePair(buf *bytes.Buffer, key, value string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// decodeObject walks the members of a JSON object in document order.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
