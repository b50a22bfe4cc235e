package retrieval

// Gate decides whether retrieved candidates constitute a real answer.
//
// A single static threshold either over-rejects borderline-but-correct
// answers or under-rejects out-of-domain questions, so the gate applies two
// tiers: prefer candidates under the strict cutoff; if none qualify, accept
// the single best candidate under the loose cutoff; otherwise nothing.
type Gate struct {
	// Strict is the confident-match distance cutoff.
	Strict float64
	// Loose is the outer cutoff; a lone candidate under it is accepted
	// only when nothing clears Strict.
	Loose float64
}

// NewGate creates a gate with the given strict and loose distance cutoffs.
func NewGate(strict, loose float64) *Gate {
	return &Gate{Strict: strict, Loose: loose}
}

// Filter applies the strict-then-loose policy to candidates already sorted
// best first. The input is never mutated.
func (g *Gate) Filter(candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	var confident []Candidate
	for _, c := range candidates {
		if c.Distance <= g.Strict {
			confident = append(confident, c)
		}
	}
	if len(confident) > 0 {
		return confident
	}

	// No confident match; accept one weak match only if it clears the
	// loose threshold.
	best := candidates[0]
	if best.Distance <= g.Loose {
		return []Candidate{best}
	}
	return nil
}

// HasAnswer reports whether the candidates contain anything the gate accepts.
func (g *Gate) HasAnswer(candidates []Candidate) bool {
	return len(g.Filter(candidates)) > 0
}
