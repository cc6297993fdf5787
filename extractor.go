package listscrape

// FieldExtractor turns a rendered detail page into flat fields.
type FieldExtractor interface {
	// Extract applies the list-block and table passes to html and merges
	// them, table values winning on collision. A page without matching
	// structures yields empty Fields and no error.
	Extract(html string) (*Fields, error)
}
