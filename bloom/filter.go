// Package bloom detects repeated detail URLs using a Bloom filter.
package bloom

import (
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// URLSet remembers detail URLs seen during a run. Membership is
// probabilistic: a reported repeat may be a false positive, a reported first
// sighting never is.
//
// It is safe for concurrent use.
type URLSet struct {
	mu    sync.Mutex
	f     *bloom.BloomFilter
	added int
}

// NewURLSet creates a set sized for n expected URLs with the given false
// positive rate.
func NewURLSet(n uint, fpRate float64) *URLSet {
	return &URLSet{f: bloom.NewWithEstimates(n, fpRate)}
}

// Seen records url and reports whether it was probably recorded before.
// URLs differing only by fragment are the same URL.
func (s *URLSet) Seen(url string) bool {
	url = Normalize(url)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f.TestAndAddString(url) {
		return true
	}
	s.added++
	return false
}

// Len returns the number of URLs recorded as first sightings.
func (s *URLSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.added
}

// Normalize strips the fragment from url.
func Normalize(url string) string {
	if idx := strings.Index(url, "#"); idx != -1 {
		return url[:idx]
	}
	return url
}
