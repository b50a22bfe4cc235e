package retrieval

import (
	"strings"
	"testing"
)

func TestLexicalScoreBasicMatch(t *testing.T) {
	query := "agile development process"
	chunk := "Agile development embraces iterative process models. The agile process adapts to change."
	score := lexicalScore(query, chunk)

	if score <= 0 {
		t.Fatalf("expected score to be positive, got %f", score)
	}
	if score > maxLexicalCredit {
		t.Fatalf("score should be clamped to maxLexicalCredit, got %f", score)
	}
}

func TestLexicalScoreNoOverlap(t *testing.T) {
	score := lexicalScore("quantum entanglement", "Software requirements specifications describe system behavior.")

	if score != 0 {
		t.Fatalf("expected score 0 for disjoint vocabulary, got %f", score)
	}
}

func TestLexicalScoreStopwordsRemoved(t *testing.T) {
	query := "what is the and of"
	chunk := "what is the and of"
	score := lexicalScore(query, chunk)

	if score != 0 {
		t.Fatalf("expected score 0 when query tokens are only stopwords, got %f", score)
	}
}

func TestLexicalScoreClamped(t *testing.T) {
	query := "testing"
	chunk := strings.Repeat("testing ", 500)
	score := lexicalScore(query, chunk)

	if score <= 0 {
		t.Fatalf("expected positive score, got %f", score)
	}
	if score > maxLexicalCredit {
		t.Fatalf("expected score clamped to %f, got %f", maxLexicalCredit, score)
	}
}

func TestTokenizeLowercasesAndStripsPunctuation(t *testing.T) {
	tokens := tokenize("What is SDLC? (software life-cycle)")

	for _, token := range tokens {
		if token != strings.ToLower(token) {
			t.Fatalf("expected lowercase tokens, got %q", token)
		}
		if strings.ContainsAny(token, "?()") {
			t.Fatalf("expected punctuation stripped, got %q", token)
		}
	}
}
