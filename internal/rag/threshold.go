package rag

import "strings"

// countWords counts whitespace-separated words in a question.
func countWords(q string) int {
	return len(strings.Fields(q))
}

// adaptiveThreshold picks a similarity cutoff from the word count of the
// original question. Short questions are keyword-like and need looser
// matching; long questions are precise and can afford stricter matching.
// The result always stays within [floor, cap].
func (c Config) adaptiveThreshold(wordCount int) float64 {
	switch {
	case wordCount <= 3:
		return maxf(c.FloorThreshold, c.BaseThreshold-0.10)
	case wordCount <= 6:
		return maxf(c.FloorThreshold+0.05, c.BaseThreshold-0.05)
	case wordCount <= 12:
		return c.BaseThreshold
	default:
		return minf(c.CapThreshold, c.BaseThreshold+0.05)
	}
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
