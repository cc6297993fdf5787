package listscrape

// Metrics receives counters from the collectors.
type Metrics interface {
	ItemCollected()
	ItemSkipped()
	Retry(kind string)
	PagePersisted(items int)
	PageFailed()
}

// Retry kinds reported to Metrics.
const (
	RetryPageLoad = "page_load"
	RetryClick    = "click"
	RetryItem     = "item"
)

// NopMetrics discards all observations.
type NopMetrics struct{}

// ItemCollected does nothing.
func (NopMetrics) ItemCollected() {}

// ItemSkipped does nothing.
func (NopMetrics) ItemSkipped() {}

// Retry does nothing.
func (NopMetrics) Retry(string) {}

// PagePersisted does nothing.
func (NopMetrics) PagePersisted(int) {}

// PageFailed does nothing.
func (NopMetrics) PageFailed() {}
