package citation

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"textbook-chatbot/internal/retrieval"
)

// defaultMaxCitations caps how many references are surfaced per answer.
const defaultMaxCitations = 3

// Reference is one resolved citation: enough for the external PDF viewer
// to open the correct page. Page is 1-indexed in the viewer's pagination.
type Reference struct {
	// Marker is the ordered reference marker, "[1]", "[2]", ...
	Marker string
	// SourceID identifies the source file.
	SourceID string
	// Page is the 1-indexed viewer page.
	Page int
	// Display is the human-readable page label; front-matter pages render
	// as Roman numerals.
	Display string
}

// Link returns the query parameters the PDF viewer collaborator consumes.
// SourceID may contain slashes or spaces, so the parameters are escaped.
func (r Reference) Link() string {
	params := url.Values{}
	params.Set("view", "pdf")
	params.Set("file", r.SourceID)
	params.Set("page", strconv.Itoa(r.Page))
	return "?" + params.Encode()
}

// Pagination maps a chunk's 0-indexed page number to the display label of
// the corpus's own pagination. Pluggable per corpus: a chapter-aligned
// corpus has no offset, a textbook with front matter does.
type Pagination interface {
	Display(pageNumber int) string
}

// FrontMatterPagination handles a corpus whose body pagination starts
// after Offset front-matter pages. Pages inside the front matter are
// labelled with Roman numerals, matching the printed book.
type FrontMatterPagination struct {
	Offset int
}

// Display implements Pagination.
func (p FrontMatterPagination) Display(pageNumber int) string {
	display := pageNumber + 1 - p.Offset
	if display >= 1 {
		return fmt.Sprintf("%d", display)
	}
	return toRoman(pageNumber + 1)
}

// Formatter appends human-readable reference links to answers.
type Formatter struct {
	pagination Pagination
	max        int
}

// NewFormatter creates a formatter. max bounds surfaced citations; values
// outside [1, 5] fall back to the default.
func NewFormatter(pagination Pagination, max int) *Formatter {
	if max < 1 || max > 5 {
		max = defaultMaxCitations
	}
	return &Formatter{pagination: pagination, max: max}
}

// References maps the surfaced candidates to ordered reference markers,
// deduplicating by (source, page). Zero candidates yield zero references.
func (f *Formatter) References(candidates []retrieval.Candidate) []Reference {
	if len(candidates) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(candidates))
	refs := make([]Reference, 0, f.max)
	for _, c := range candidates {
		key := fmt.Sprintf("%s#%d", c.SourceID, c.PageNumber)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		refs = append(refs, Reference{
			Marker:   fmt.Sprintf("[%d]", len(refs)+1),
			SourceID: c.SourceID,
			Page:     c.PageNumber + 1,
			Display:  f.pagination.Display(c.PageNumber),
		})
		if len(refs) == f.max {
			break
		}
	}
	return refs
}

// Suffix renders references as a citation suffix for the answer text.
// Empty when there are no references.
func (f *Formatter) Suffix(refs []Reference) string {
	if len(refs) == 0 {
		return ""
	}

	parts := make([]string, len(refs))
	for i, ref := range refs {
		parts[i] = fmt.Sprintf("%s %s, p. %s", ref.Marker, ref.SourceID, ref.Display)
	}
	return "Sources: " + strings.Join(parts, "; ")
}

// toRoman converts a positive integer to a lowercase Roman numeral, the
// convention for front-matter page labels.
func toRoman(n int) string {
	if n <= 0 {
		return ""
	}

	values := []struct {
		value  int
		symbol string
	}{
		{1000, "m"}, {900, "cm"}, {500, "d"}, {400, "cd"},
		{100, "c"}, {90, "xc"}, {50, "l"}, {40, "xl"},
		{10, "x"}, {9, "ix"}, {5, "v"}, {4, "iv"}, {1, "i"},
	}

	var builder strings.Builder
	for _, v := range values {
		for n >= v.value {
			builder.WriteString(v.symbol)
			n -= v.value
		}
	}
	return builder.String()
}
