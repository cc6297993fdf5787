// Package listscrape collects structured records from paginated list sites
// where every entity's data lives on a detail page that is reachable only by
// clicking through from the list. It drives a browser page by page and item by
// item, retries at every level, and merges each finished page into a JSON
// dataset that is never left half-written.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., rod/, goquery/, sqlite/).
package listscrape
