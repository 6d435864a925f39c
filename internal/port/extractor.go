package port

// PageText is the extracted text of one page, 1-based.
type PageText struct {
	Number int
	Text   string
}

// Extractor extracts page-aware text from a source file.
type Extractor interface {
	// CanHandle reports whether the extractor handles the given path.
	CanHandle(path string) bool

	// Extract returns the pages of the file in order. Extraction of the
	// same bytes is deterministic.
	Extract(path string) ([]PageText, error)
}
