package mock

import "github.com/fwojciec/listscrape"

var _ listscrape.Metrics = (*Metrics)(nil)

// Metrics is a mock implementation of listscrape.Metrics.
type Metrics struct {
	ItemCollectedFn func()
	ItemSkippedFn   func()
	RetryFn         func(kind string)
	PagePersistedFn func(items int)
	PageFailedFn    func()
}

func (m *Metrics) ItemCollected() {
	m.ItemCollectedFn()
}

func (m *Metrics) ItemSkipped() {
	m.ItemSkippedFn()
}

func (m *Metrics) Retry(kind string) {
	m.RetryFn(kind)
}

func (m *Metrics) PagePersisted(items int) {
	m.PagePersistedFn(items)
}

func (m *Metrics) PageFailed() {
	m.PageFailedFn()
}
