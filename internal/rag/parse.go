package rag

import (
	"encoding/json"
	"strings"
)

// modelAnswer is the JSON shape the generation prompt asks for.
type modelAnswer struct {
	Answer    string   `json:"answer"`
	Followups []string `json:"followups"`
}

// extractBalancedJSON returns the first balanced {...} object in raw, found by
// a brace-depth scan that respects string literals and escapes. A naive
// first/last-brace cut breaks on answers that themselves contain braces.
func extractBalancedJSON(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

// parseModelOutput extracts an answer and follow-ups from raw model text.
// Strategy: balanced JSON object first, then the line-based heuristic, then
// the whole raw text as answer with no follow-ups.
func parseModelOutput(raw string) (answer string, followups []string) {
	if obj, ok := extractBalancedJSON(raw); ok {
		var parsed modelAnswer
		if err := json.Unmarshal([]byte(obj), &parsed); err == nil && strings.TrimSpace(parsed.Answer) != "" {
			return strings.TrimSpace(parsed.Answer), parsed.Followups
		}
	}

	if answer, followups, ok := heuristicExtract(raw); ok {
		return answer, followups
	}

	return strings.TrimSpace(raw), nil
}

// followupPrefixes mark lines that read as suggested next steps rather than
// answer text.
var followupPrefixes = []string{
	"si tu veux", "je peux aussi", "je peux t'", "je peux te", "veux-tu",
	"souhaites-tu", "tu peux me demander", "n'hésite pas",
}

// heuristicExtract separates follow-up-looking lines from the rest of the
// text. Markdown headings, list items and blockquotes never count as
// follow-ups even when they start with a matching phrase.
func heuristicExtract(raw string) (answer string, followups []string, ok bool) {
	lines := strings.Split(raw, "\n")
	var answerLines []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			answerLines = append(answerLines, line)
			continue
		}
		if isMarkdownStructure(trimmed) {
			answerLines = append(answerLines, line)
			continue
		}
		lower := strings.ToLower(trimmed)
		isFollowup := false
		for _, prefix := range followupPrefixes {
			if strings.HasPrefix(lower, prefix) {
				isFollowup = true
				break
			}
		}
		if isFollowup {
			followups = append(followups, trimmed)
		} else {
			answerLines = append(answerLines, line)
		}
	}

	answer = strings.TrimSpace(strings.Join(answerLines, "\n"))
	if answer == "" {
		return "", nil, false
	}
	return answer, followups, true
}

func isMarkdownStructure(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "- ") ||
		strings.HasPrefix(trimmed, "* ") ||
		strings.HasPrefix(trimmed, "> ")
}
