package corpus

import "strings"

// Splitter cuts page text into overlapping chunks. Size and overlap are in
// runes; overlap must be smaller than size.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a splitter with the given target chunk size and
// overlap window.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Splitter{size: size, overlap: overlap}
}

// Split cuts the page's text into chunks of at most the target size, with
// consecutive chunks sharing the configured overlap. Cuts prefer whitespace
// near the boundary so words are not bisected. Chunk IDs are left empty for
// the indexer to assign.
func (s *Splitter) Split(page Page) []Chunk {
	runes := []rune(strings.TrimSpace(page.Text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk
	step := s.size - s.overlap
	for start := 0; start < len(runes); start += step {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		} else {
			end = breakNearWhitespace(runes, start, end)
		}

		text := strings.TrimSpace(string(runes[start:end]))
		if text != "" {
			chunks = append(chunks, Chunk{
				SourceID:   page.SourceID,
				PageNumber: page.Number,
				Index:      len(chunks),
				Text:       text,
			})
		}

		if end == len(runes) {
			break
		}
	}

	return chunks
}

// breakNearWhitespace moves the cut left to the nearest whitespace, looking
// back at most a tenth of the chunk so a long unbroken token still splits.
func breakNearWhitespace(runes []rune, start, end int) int {
	limit := end - (end-start)/10
	for i := end; i > limit; i-- {
		if runes[i-1] == ' ' || runes[i-1] == '\n' || runes[i-1] == '\t' {
			return i
		}
	}
	return end
}
