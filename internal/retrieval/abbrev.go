package retrieval

import "strings"

// abbreviations maps software-engineering acronyms to expanded forms.
// Expanding them before retrying retrieval helps when the embedding model
// under-weights a bare acronym.
var abbreviations = map[string]string{
	"agile":  "agile methodology",
	"api":    "application programming interface",
	"cbse":   "component based software engineering",
	"ci":     "continuous integration",
	"cmmi":   "capability maturity model integration",
	"cots":   "commercial off the shelf",
	"ddd":    "domain driven design",
	"ide":    "integrated development environment",
	"oop":    "object oriented programming",
	"qa":     "quality assurance",
	"rad":    "rapid application development",
	"roi":    "return on investment",
	"scm":    "software configuration management",
	"sdlc":   "software development life cycle",
	"sqa":    "software quality assurance",
	"srs":    "software requirements specification",
	"swebok": "software engineering body of knowledge",
	"tdd":    "test driven development",
	"uat":    "user acceptance testing",
	"uml":    "unified modeling language",
	"v&v":    "verification and validation",
	"xp":     "extreme programming",
}

// expandAbbreviations replaces known acronyms in the question with their
// expanded forms. Matching is case-insensitive per whitespace token;
// unknown tokens pass through untouched. Returns the original string when
// nothing expanded, so callers can skip a redundant retrieval.
func expandAbbreviations(question string) string {
	fields := strings.Fields(question)
	if len(fields) == 0 {
		return question
	}

	expanded := false
	for i, field := range fields {
		key := strings.ToLower(strings.Trim(field, ".,;:!?()"))
		if full, ok := abbreviations[key]; ok {
			fields[i] = full
			expanded = true
		}
	}
	if !expanded {
		return question
	}
	return strings.Join(fields, " ")
}
