package corpus

// Page is one page of extracted corpus text.
type Page struct {
	// SourceID identifies the originating document (file name relative to
	// the corpus root).
	SourceID string
	// Number is the 0-indexed page position within the source.
	Number int
	// Text is the extracted plain text of the page.
	Text string
}

// Chunk is a bounded span of corpus text with a stable source/page identity.
// Created once at index-build time and immutable thereafter.
type Chunk struct {
	// ID is the UUID shared between the vector point and the SQLite row.
	ID string
	// SourceID identifies the originating document.
	SourceID string
	// PageNumber is the 0-indexed page the chunk starts on. Always >= 0.
	PageNumber int
	// Index is the chunk's position within its page.
	Index int
	// Text is the chunk content, within the configured size bounds.
	Text string
}
