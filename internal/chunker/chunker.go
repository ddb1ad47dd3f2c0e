// Package chunker splits document text into token-bounded, overlapping
// fragments ready for embedding. Markdown input is parsed so fragments never
// cut across block boundaries.
package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"docchat-ai/internal/tokens"
)

const (
	// DefaultMaxTokens targets chunks small enough for a 512-token embedding
	// model with headroom for the model's own special tokens.
	DefaultMaxTokens = 450
	// DefaultOverlapWords is how many trailing words of a fragment are
	// repeated at the start of the next one so context survives the cut.
	DefaultOverlapWords = 25
)

// Fragment is one token-bounded piece of a document.
type Fragment struct {
	Text  string
	Index int
}

// Chunker splits text into fragments.
type Chunker struct {
	maxTokens    int
	overlapWords int
	parser       goldmark.Markdown
}

// New creates a chunker. Non-positive arguments fall back to the defaults.
func New(maxTokens, overlapWords int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if overlapWords < 0 {
		overlapWords = DefaultOverlapWords
	}
	return &Chunker{
		maxTokens:    maxTokens,
		overlapWords: overlapWords,
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Split chunks content into fragments of at most maxTokens estimated tokens,
// with word overlap between consecutive fragments. Plain text works too:
// goldmark treats its paragraphs as blocks.
func (c *Chunker) Split(content string) []Fragment {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}

	blocks := c.extractBlocks([]byte(trimmed))
	if len(blocks) == 0 {
		blocks = []string{trimmed}
	}

	var fragments []Fragment
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		fragments = append(fragments, Fragment{
			Text:  strings.Join(current, "\n\n"),
			Index: len(fragments),
		})
		current = nil
		currentTokens = 0
	}

	for _, block := range blocks {
		// A single block over the cap is split on its own before packing.
		for _, piece := range c.splitOversized(block) {
			est := tokens.Estimate(piece)
			if currentTokens+est > c.maxTokens && len(current) > 0 {
				overlap := tailWords(strings.Join(current, " "), c.overlapWords)
				flush()
				if overlap != "" {
					current = []string{overlap}
					currentTokens = tokens.Estimate(overlap)
				}
			}
			current = append(current, piece)
			currentTokens += est
		}
	}
	flush()

	return fragments
}

// extractBlocks walks the markdown AST and returns the text of each
// top-level block.
func (c *Chunker) extractBlocks(source []byte) []string {
	reader := text.NewReader(source)
	doc := c.parser.Parser().Parse(reader)

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		blockText := strings.TrimSpace(nodeText(node, source))
		if blockText != "" {
			blocks = append(blocks, blockText)
		}
	}
	return blocks
}

// nodeText collects the raw text lines under a block node, including nested
// children (list items, blockquote content).
func nodeText(node ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if n.Type() == ast.TypeBlock {
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				segment := lines.At(i)
				b.Write(segment.Value(source))
			}
			if lines.Len() > 0 {
				b.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// splitOversized breaks a block over the token cap into sentence runs, and
// falls back to word runs for a single giant sentence.
func (c *Chunker) splitOversized(block string) []string {
	if tokens.Estimate(block) <= c.maxTokens {
		return []string{block}
	}

	var pieces []string
	var current strings.Builder
	for _, sentence := range splitSentences(block) {
		if current.Len() > 0 && tokens.Estimate(current.String()+" "+sentence) > c.maxTokens {
			pieces = append(pieces, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if tokens.Estimate(sentence) > c.maxTokens {
			pieces = append(pieces, splitByWords(sentence, c.maxTokens)...)
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		pieces = append(pieces, strings.TrimSpace(current.String()))
	}
	return pieces
}

func splitSentences(s string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') &&
			(i == len(runes)-1 || runes[i+1] == ' ' || runes[i+1] == '\n') {
			if sentence := strings.TrimSpace(current.String()); sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}
	if sentence := strings.TrimSpace(current.String()); sentence != "" {
		sentences = append(sentences, sentence)
	}
	return sentences
}

func splitByWords(s string, maxTokens int) []string {
	words := strings.Fields(s)
	var pieces []string
	var current []string
	for _, word := range words {
		current = append(current, word)
		if tokens.Estimate(strings.Join(current, " ")) > maxTokens && len(current) > 1 {
			pieces = append(pieces, strings.Join(current[:len(current)-1], " "))
			current = []string{word}
		}
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.Join(current, " "))
	}
	return pieces
}

// tailWords returns the last n words of s.
func tailWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[len(words)-n:], " ")
}
