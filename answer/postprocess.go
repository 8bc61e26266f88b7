package answer

import "strings"

// Refusal is the canonical answer when no grounded answer could be produced.
const Refusal = "I don't have enough information in the provided context to answer this question."

// minConfidentLength is the length below which an answer must carry a
// yes/no style token to be accepted.
const minConfidentLength = 20

var dontKnowPatterns = []string{
	"i don't have enough information",
	"i cannot answer",
	"i don't know",
	"no information provided",
	"not enough context",
	"unable to determine",
	"insufficient information",
}

var shortAnswerTokens = []string{"yes", "no", "true", "false"}

// Postprocess trims raw and canonicalizes uncertain or empty answers to Refusal.
// An empty string is treated as no result.
func Postprocess(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return Refusal
	}

	lower := strings.ToLower(cleaned)
	for _, pattern := range dontKnowPatterns {
		if strings.Contains(lower, pattern) {
			return Refusal
		}
	}

	if len(cleaned) < minConfidentLength && !containsAny(lower, shortAnswerTokens) {
		return Refusal
	}
	return cleaned
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
