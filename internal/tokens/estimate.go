// Package tokens provides the approximate token estimator shared by the
// chunker and the question pipeline. The formula is a deliberate stand-in for
// a real tokenizer; both sides of the budget math must use the same one.
package tokens

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Estimate approximates the token count of text as
// ceil((wordCount*1.3 + runeCount/4) / 2).
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	chars := utf8.RuneCountInString(text)
	return int(math.Ceil((float64(words)*1.3 + float64(chars)/4.0) / 2.0))
}
