package summarize

import "strings"

// IsIncomplete reports whether the model output looks cut off. Any of these
// marks the text truncated: it is empty, the finish reason mentions a token
// limit, it trails off with an ellipsis, or it ends mid-sentence on a comma,
// semicolon or colon. The heuristic is deliberately conservative: a false
// positive just costs a reprompt attempt, a false negative ships a broken
// summary to subscribers.
func IsIncomplete(text, finishReason string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}

	reason := strings.ToUpper(finishReason)
	if strings.Contains(reason, "MAX_TOKENS") || strings.Contains(reason, "LENGTH") {
		return true
	}

	if strings.HasSuffix(trimmed, "...") || strings.HasSuffix(trimmed, "…") {
		return true
	}

	switch trimmed[len(trimmed)-1] {
	case ',', ';', ':':
		return true
	}

	return false
}
