package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"godlearn/internal/port"
)

// PlainExtractor handles text-like files. Form feeds mark page boundaries;
// a file without form feeds is a single page.
type PlainExtractor struct{}

func NewPlainExtractor() *PlainExtractor {
	return &PlainExtractor{}
}

func (e *PlainExtractor) CanHandle(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

func (e *PlainExtractor) Extract(path string) ([]port.PageText, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	parts := strings.Split(string(data), "\f")
	pages := make([]port.PageText, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, port.PageText{Number: i + 1, Text: part})
	}
	return pages, nil
}

// Composite dispatches to the first extractor that handles a path.
type Composite struct {
	extractors []port.Extractor
}

func NewComposite(extractors ...port.Extractor) *Composite {
	return &Composite{extractors: extractors}
}

func (c *Composite) CanHandle(path string) bool {
	for _, e := range c.extractors {
		if e.CanHandle(path) {
			return true
		}
	}
	return false
}

func (c *Composite) Extract(path string) ([]port.PageText, error) {
	for _, e := range c.extractors {
		if e.CanHandle(path) {
			return e.Extract(path)
		}
	}
	return nil, fmt.Errorf("no extractor for %s", path)
}
