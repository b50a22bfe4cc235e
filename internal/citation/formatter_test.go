package citation

import (
	"testing"

	"textbook-chatbot/internal/retrieval"
)

func TestFrontMatterPaginationDisplay(t *testing.T) {
	pagination := FrontMatterPagination{Offset: 33}

	tests := []struct {
		name       string
		pageNumber int // 0-indexed
		want       string
	}{
		{name: "first body page", pageNumber: 33, want: "1"},
		{name: "deep body page", pageNumber: 132, want: "100"},
		{name: "first front matter page", pageNumber: 0, want: "i"},
		{name: "mid front matter", pageNumber: 11, want: "xii"},
		{name: "last front matter page", pageNumber: 32, want: "xxxiii"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pagination.Display(tt.pageNumber); got != tt.want {
				t.Fatalf("Display(%d) = %q, want %q", tt.pageNumber, got, tt.want)
			}
		})
	}
}

func TestFrontMatterPaginationNoOffset(t *testing.T) {
	pagination := FrontMatterPagination{}
	if got := pagination.Display(0); got != "1" {
		t.Fatalf("Display(0) = %q, want plain numbering without offset", got)
	}
}

func TestReferencesDeduplicateAndCap(t *testing.T) {
	formatter := NewFormatter(FrontMatterPagination{}, 3)

	candidates := []retrieval.Candidate{
		{SourceID: "book.pdf", PageNumber: 10},
		{SourceID: "book.pdf", PageNumber: 10}, // duplicate page
		{SourceID: "book.pdf", PageNumber: 11},
		{SourceID: "notes.txt", PageNumber: 0},
		{SourceID: "book.pdf", PageNumber: 12}, // beyond the cap
	}

	refs := formatter.References(candidates)
	if len(refs) != 3 {
		t.Fatalf("References() returned %d refs, want 3", len(refs))
	}
	if refs[0].Marker != "[1]" || refs[1].Marker != "[2]" || refs[2].Marker != "[3]" {
		t.Fatalf("markers = %s %s %s, want sequential", refs[0].Marker, refs[1].Marker, refs[2].Marker)
	}
	if refs[2].SourceID != "notes.txt" {
		t.Fatalf("third ref = %s, want the deduplicated third distinct location", refs[2].SourceID)
	}
}

func TestReferencesEmptyInput(t *testing.T) {
	formatter := NewFormatter(FrontMatterPagination{}, 3)
	if refs := formatter.References(nil); refs != nil {
		t.Fatalf("References(nil) = %v, want nil", refs)
	}
}

func TestReferenceLinkIsOneIndexed(t *testing.T) {
	formatter := NewFormatter(FrontMatterPagination{Offset: 33}, 3)
	refs := formatter.References([]retrieval.Candidate{{SourceID: "book.pdf", PageNumber: 33}})

	if refs[0].Page != 34 {
		t.Fatalf("Page = %d, want 1-indexed viewer page 34", refs[0].Page)
	}
	want := "?file=book.pdf&page=34&view=pdf"
	if got := refs[0].Link(); got != want {
		t.Fatalf("Link() = %q, want %q", got, want)
	}
}

func TestReferenceLinkEscapesSourceID(t *testing.T) {
	formatter := NewFormatter(FrontMatterPagination{}, 3)
	refs := formatter.References([]retrieval.Candidate{
		{SourceID: "ch1/intro notes.txt", PageNumber: 0},
	})

	want := "?file=ch1%2Fintro+notes.txt&page=1&view=pdf"
	if got := refs[0].Link(); got != want {
		t.Fatalf("Link() = %q, want %q", got, want)
	}
}

func TestSuffixRendering(t *testing.T) {
	formatter := NewFormatter(FrontMatterPagination{Offset: 33}, 3)
	refs := formatter.References([]retrieval.Candidate{
		{SourceID: "book.pdf", PageNumber: 33},
		{SourceID: "book.pdf", PageNumber: 11},
	})

	want := "Sources: [1] book.pdf, p. 1; [2] book.pdf, p. xii"
	if got := formatter.Suffix(refs); got != want {
		t.Fatalf("Suffix() = %q, want %q", got, want)
	}
}

func TestSuffixEmpty(t *testing.T) {
	formatter := NewFormatter(FrontMatterPagination{}, 3)
	if got := formatter.Suffix(nil); got != "" {
		t.Fatalf("Suffix(nil) = %q, want empty", got)
	}
}

func TestNewFormatterClampsMax(t *testing.T) {
	formatter := NewFormatter(FrontMatterPagination{}, 0)
	if formatter.max != defaultMaxCitations {
		t.Fatalf("max = %d, want default %d", formatter.max, defaultMaxCitations)
	}

	formatter = NewFormatter(FrontMatterPagination{}, 9)
	if formatter.max != defaultMaxCitations {
		t.Fatalf("max = %d, want default for out-of-range input", formatter.max)
	}
}

func TestToRoman(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "i"}, {4, "iv"}, {9, "ix"}, {14, "xiv"}, {33, "xxxiii"}, {40, "xl"}, {0, ""},
	}
	for _, tt := range tests {
		if got := toRoman(tt.n); got != tt.want {
			t.Fatalf("toRoman(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
