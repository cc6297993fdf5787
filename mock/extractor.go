package mock

import "github.com/fwojciec/listscrape"

var _ listscrape.FieldExtractor = (*FieldExtractor)(nil)

// FieldExtractor is a mock implementation of listscrape.FieldExtractor.
type FieldExtractor struct {
	ExtractFn func(html string) (*listscrape.Fields, error)
}

func (e *FieldExtractor) Extract(html string) (*listscrape.Fields, error) {
	return e.ExtractFn(html)
}
