package rag

import (
	"strconv"
	"strings"

	"docchat-ai/internal/tokens"
	"docchat-ai/internal/vectorstore"
)

// continuationMarker is appended to chunk text cut by truncation.
const continuationMarker = " […]"

// truncateChunk returns a copy of the chunk whose text fits within maxTokens.
// The cut prefers a sentence boundary inside the last 20% of the truncation
// window and falls back to a hard cut. The input chunk is never mutated:
// search results may be shared, so truncation produces a new value.
func truncateChunk(chunk vectorstore.ScoredChunk, maxTokens int) vectorstore.ScoredChunk {
	est := tokens.Estimate(chunk.Payload.Text)
	if est <= maxTokens {
		return chunk
	}

	text := chunk.Payload.Text
	runes := []rune(text)
	// Proportional first guess, then shrink until the estimate fits.
	target := len(runes) * maxTokens / est
	for {
		if target < 1 {
			target = 1
		}
		cut := string(runes[:target])

		// Look for a sentence boundary within the last 20% of the window.
		windowStart := target - target/5
		if boundary := lastSentenceEnd(cut); boundary >= windowStart && boundary > 0 {
			cut = cut[:boundaryByteLen(cut, boundary)]
		}

		cut = strings.TrimRight(cut, " \n\t") + continuationMarker
		if tokens.Estimate(cut) <= maxTokens || target == 1 {
			truncated := chunk
			truncated.Payload.Text = cut
			return truncated
		}
		target = target * 9 / 10
	}
}

// lastSentenceEnd returns the rune index just past the last sentence
// terminator in s, or -1 if there is none.
func lastSentenceEnd(s string) int {
	best := -1
	runes := []rune(s)
	for i := 0; i < len(runes)-1; i++ {
		if (runes[i] == '.' || runes[i] == '!' || runes[i] == '?') &&
			(runes[i+1] == ' ' || runes[i+1] == '\n') {
			best = i + 1
		}
	}
	return best
}

// boundaryByteLen converts a rune index into the byte length of the prefix.
func boundaryByteLen(s string, runeIdx int) int {
	count := 0
	for i := range s {
		if count == runeIdx {
			return i
		}
		count++
	}
	return len(s)
}

// filterByTokenBudget walks chunks in rank order, truncating any chunk over
// the per-chunk cap, and keeps chunks while the cumulative estimate stays
// within the overall context budget. Iteration stops (not skips) at the first
// chunk that would exceed the budget so rank order keeps priority.
func (e *engine) filterByTokenBudget(chunks []vectorstore.ScoredChunk) []vectorstore.ScoredChunk {
	kept := make([]vectorstore.ScoredChunk, 0, len(chunks))
	total := 0
	for _, chunk := range chunks {
		c := truncateChunk(chunk, e.cfg.MaxTokensPerChunk)
		est := tokens.Estimate(c.Payload.Text)
		if total+est > e.cfg.MaxContextTokens {
			break
		}
		total += est
		kept = append(kept, c)
	}
	return kept
}

// buildContext assembles the retrieved chunks into the prompt context, each
// block prefixed with its source number.
func buildContext(chunks []vectorstore.ScoredChunk) string {
	blocks := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		var b strings.Builder
		b.WriteString("[Source ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("] ")
		if chunk.Payload.Title != "" {
			b.WriteString(chunk.Payload.Title)
			b.WriteString("\n")
		}
		b.WriteString(chunk.Payload.Text)
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n---\n\n")
}
