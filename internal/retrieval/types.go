package retrieval

// Candidate is a scored retrieval result. Distance is non-negative and
// lower means more similar; candidates are always ordered best first.
type Candidate struct {
	ChunkID    string
	SourceID   string
	PageNumber int
	Text       string
	// Distance is the blended distance: vector distance reduced by a
	// bounded lexical-overlap credit.
	Distance float64
	// VectorDistance is the raw embedding distance before blending.
	VectorDistance float64
	// LexicalScore is the keyword-overlap component, in [0, maxLexicalCredit].
	LexicalScore float64
}

// Stage identifies one step of the question refinement chain.
type Stage string

const (
	StageDirect       Stage = "direct"
	StageAbbreviation Stage = "abbreviation"
	StageSanitize     Stage = "sanitize"
	StageRewrite      Stage = "rewrite"
)

// QueryAttempt records one step of the refinement chain: the (possibly
// transformed) question, what it retrieved, and whether the gate accepted
// any of it.
type QueryAttempt struct {
	Stage      Stage
	Question   string
	Candidates []Candidate
	Found      bool
}
