package answer

import (
	"context"
	"strings"
)

// Guardrail is an injectable policy stage applied to the prompt/response
// pair before the answer is treated as final. An implementation may return
// the text unchanged, substitute it, or reject it with an error.
type Guardrail interface {
	Check(ctx context.Context, question, answer string) (string, error)
}

// DenylistGuardrail substitutes a fixed refusal when the answer contains
// any denylisted phrase (case-insensitive).
type DenylistGuardrail struct {
	Phrases     []string
	Replacement string
}

// Check implements Guardrail.
func (g *DenylistGuardrail) Check(_ context.Context, _ string, answer string) (string, error) {
	lowered := strings.ToLower(answer)
	for _, phrase := range g.Phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(phrase)) {
			return g.Replacement, nil
		}
	}
	return answer, nil
}
