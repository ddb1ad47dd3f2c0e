package llm

import "strings"

// contextLengthPhrases are fragments seen in upstream error bodies when a
// prompt exceeds the model's context window. Matching is on the error text
// because OpenAI-compatible servers disagree on error codes.
var contextLengthPhrases = []string{
	"maximum context length",
	"context_length_exceeded",
	"context length exceeded",
	"too many tokens",
	"reduce the length",
}

// IsContextLengthError reports whether err looks like a context-window
// violation from the completion service.
func IsContextLengthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range contextLengthPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
