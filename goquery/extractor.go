// Package goquery extracts detail-page fields from rendered HTML.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/listscrape"
)

// Ensure FieldExtractor implements listscrape.FieldExtractor at compile time.
var _ listscrape.FieldExtractor = (*FieldExtractor)(nil)

// FieldExtractor reads labeled list blocks and two-column tables.
type FieldExtractor struct {
	sel listscrape.Selectors
}

// NewFieldExtractor creates a FieldExtractor for the given selectors.
// An empty DuplicateKeys policy means last occurrence wins.
func NewFieldExtractor(sel listscrape.Selectors) *FieldExtractor {
	if sel.DuplicateKeys == "" {
		sel.DuplicateKeys = listscrape.DuplicateLast
	}
	return &FieldExtractor{sel: sel}
}

// Extract runs the list-block pass and the table pass over html and
// overlays the table result onto the list result.
func (e *FieldExtractor) Extract(html string) (*listscrape.Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, listscrape.Errorf(listscrape.EINVALID, "failed to parse HTML: %v", err)
	}

	fields := e.listFields(doc)
	fields.Merge(e.tableFields(doc))
	return fields, nil
}

func (e *FieldExtractor) listFields(doc *goquery.Document) *listscrape.Fields {
	fields := &listscrape.Fields{}
	if e.sel.ListItem == "" || e.sel.ListKey == "" || e.sel.ListValue == "" {
		return fields
	}
	doc.Find(e.sel.ListItem).Each(func(_ int, item *goquery.Selection) {
		key := item.Find(e.sel.ListKey).First()
		value := item.Find(e.sel.ListValue).First()
		if key.Length() == 0 || value.Length() == 0 {
			return
		}
		e.set(fields, text(key), text(value))
	})
	return fields
}

func (e *FieldExtractor) tableFields(doc *goquery.Document) *listscrape.Fields {
	fields := &listscrape.Fields{}
	if e.sel.Table == "" {
		return fields
	}
	doc.Find(e.sel.Table).Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}
			e.set(fields, text(cells.Eq(0)), text(cells.Eq(1)))
		})
	})
	return fields
}

// set stores a pair, skipping empty keys and honoring the duplicate policy.
func (e *FieldExtractor) set(fields *listscrape.Fields, key, value string) {
	if key == "" {
		return
	}
	if e.sel.DuplicateKeys == listscrape.DuplicateFirst && fields.Has(key) {
		return
	}
	fields.Set(key, value)
}

// text returns the trimmed text of the first node in sel.
func text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}
