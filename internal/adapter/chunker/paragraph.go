package chunker

import (
	"fmt"
	"strings"

	"godlearn/internal/domain"
	"godlearn/internal/port"
)

// ParagraphChunker splits page-aware text into paragraph chunks. Chunking is
// deterministic: the same pages always yield the same chunk set, which keeps
// chunk IDs stable across ingestion runs.
type ParagraphChunker struct{}

func NewParagraphChunker() *ParagraphChunker {
	return &ParagraphChunker{}
}

type block struct {
	text      string
	pageStart int
	pageEnd   int
}

// Chunk splits pages into blank-line separated paragraphs. A paragraph that
// runs off the bottom of a page without terminal punctuation is merged with
// the first paragraph of the next page, so chunks carry real page ranges.
func (c *ParagraphChunker) Chunk(docID string, pages []port.PageText) []domain.Chunk {
	var blocks []block

	for _, page := range pages {
		paras := splitParagraphs(page.Text)
		for i, p := range paras {
			if i == 0 && len(blocks) > 0 && continues(blocks[len(blocks)-1].text) {
				prev := &blocks[len(blocks)-1]
				prev.text = prev.text + " " + p
				prev.pageEnd = page.Number
				continue
			}
			blocks = append(blocks, block{text: p, pageStart: page.Number, pageEnd: page.Number})
		}
	}

	chunks := make([]domain.Chunk, 0, len(blocks))
	for i, b := range blocks {
		chunks = append(chunks, domain.Chunk{
			ID:        fmt.Sprintf("%s:%d", docID, i),
			DocID:     docID,
			Index:     i,
			Text:      b.text,
			PageStart: b.pageStart,
			PageEnd:   b.pageEnd,
		})
	}
	return chunks
}

// splitParagraphs splits page text on blank lines, collapsing intra-paragraph
// line breaks to spaces.
func splitParagraphs(text string) []string {
	var paras []string
	var lines []string

	flush := func() {
		if len(lines) == 0 {
			return
		}
		p := strings.TrimSpace(strings.Join(lines, " "))
		if p != "" {
			paras = append(paras, p)
		}
		lines = lines[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	flush()

	return paras
}

// continues reports whether a paragraph likely spills onto the next page.
func continues(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case '.', '!', '?', ':', ';':
		return false
	}
	return true
}
