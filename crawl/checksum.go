package crawl

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/listscrape"
)

// Checksum hashes the content of a batch: each record's detail URL and
// extracted fields, in order. Collection timestamps are left out, so
// recollecting unchanged pages yields the same checksum.
func Checksum(batch *listscrape.PageBatch) string {
	h := xxhash.New()
	for _, r := range batch.Records {
		_, _ = h.WriteString(r.URL)
		_, _ = h.Write([]byte{0})
		if r.Fields == nil {
			continue
		}
		for _, k := range r.Fields.Keys() {
			v, _ := r.Fields.Get(k)
			_, _ = h.WriteString(k)
			_, _ = h.Write([]byte{0})
			_, _ = h.WriteString(v)
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{1})
	}
	return fmt.Sprintf("%x", h.Sum64())
}
