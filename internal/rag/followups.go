package rag

import (
	"fmt"
	"strings"
)

const maxFollowups = 3

// questionOpeners detect follow-ups phrased as questions so they can be
// rewritten into offers.
var questionOpeners = []string{
	"veux-tu", "veux tu", "souhaites-tu", "souhaites tu", "est-ce que",
	"as-tu", "as tu", "tu veux", "aimerais-tu", "aimerais tu", "puis-je",
}

// NormalizeFollowups cleans a follow-up list: trims, strips trailing question
// marks, drops entries containing banned words, deduplicates
// case-insensitively (first seen wins) and caps the list at three.
// The operation is a fixed point: applying it to its own output is a no-op.
func NormalizeFollowups(followups []string, bannedWords []string) []string {
	seen := make(map[string]struct{}, len(followups))
	result := make([]string, 0, len(followups))

	for _, f := range followups {
		f = strings.TrimSpace(f)
		f = strings.TrimRight(f, "?")
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}

		lower := strings.ToLower(f)
		if containsBannedWord(lower, bannedWords) {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		result = append(result, f)
		if len(result) == maxFollowups {
			break
		}
	}
	return result
}

func containsBannedWord(lower string, bannedWords []string) bool {
	for _, w := range bannedWords {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// infinitiveSuffixes recognize the French infinitive endings so a question
// remainder can slot directly after "je peux".
var infinitiveSuffixes = []string{"er", "ir", "re", "oir"}

// nounDeterminers open remainders that name a thing rather than an action
// ("un exemple", "la suite"); those need a carrier verb after "je peux".
var nounDeterminers = []string{
	"un", "une", "le", "la", "les", "des", "du", "de",
	"mon", "ton", "son", "ta", "tes", "ce", "cette", "ces",
	"plus", "davantage", "quelques",
}

// styleAsOffer rewrites a follow-up that reads as a question into a
// "Si tu veux, je peux ..." offer. Statements pass through unchanged.
// An infinitive remainder follows "je peux" directly; a noun phrase gets
// "te donner" in between; anything else falls back to the generic offer
// rather than producing a broken sentence.
func styleAsOffer(followup string) string {
	trimmed := strings.TrimSpace(followup)
	lower := strings.ToLower(trimmed)

	if strings.HasPrefix(lower, "si tu veux") {
		return trimmed
	}

	for _, opener := range questionOpeners {
		if strings.HasPrefix(lower, opener) {
			rest := strings.TrimSpace(trimmed[len(opener):])
			rest = strings.TrimPrefix(rest, "que je ")
			rest = strings.TrimPrefix(rest, "qu'on ")
			rest = strings.TrimSpace(strings.TrimRight(rest, "?"))
			if rest == "" {
				return "Si tu veux, je peux t'en dire plus"
			}
			switch {
			case startsWithInfinitive(rest):
				return "Si tu veux, je peux " + lowerFirst(rest)
			case startsWithDeterminer(rest):
				return "Si tu veux, je peux te donner " + lowerFirst(rest)
			default:
				return "Si tu veux, je peux t'en dire plus"
			}
		}
	}
	return trimmed
}

func startsWithInfinitive(rest string) bool {
	words := strings.Fields(strings.ToLower(rest))
	if len(words) == 0 {
		return false
	}
	for _, suffix := range infinitiveSuffixes {
		if strings.HasSuffix(words[0], suffix) {
			return true
		}
	}
	return false
}

func startsWithDeterminer(rest string) bool {
	lower := strings.ToLower(rest)
	if strings.HasPrefix(lower, "l'") {
		return true
	}
	words := strings.Fields(lower)
	if len(words) == 0 {
		return false
	}
	for _, det := range nounDeterminers {
		if words[0] == det {
			return true
		}
	}
	return false
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = []rune(strings.ToLower(string(runes[0])))[0]
	return string(runes)
}

// stripTrailingQuestion removes the answer's own trailing interrogative
// sentence, if any. The generation rules forbid ending on a question but
// models ignore that often enough to enforce it here.
func stripTrailingQuestion(answer string) string {
	trimmed := strings.TrimRight(answer, " \n\t")
	if !strings.HasSuffix(trimmed, "?") {
		return answer
	}

	// Cut back to the end of the previous sentence.
	runes := []rune(trimmed)
	for i := len(runes) - 2; i >= 0; i-- {
		switch runes[i] {
		case '.', '!', '\n':
			return strings.TrimRight(string(runes[:i+1]), " \n\t")
		}
	}
	// The whole answer is one question; keep it rather than return nothing.
	return answer
}

// defaultFollowup is the themed open-ended offer appended when the model gave
// nothing usable.
func (e *engine) defaultFollowup() string {
	if e.cfg.Theme != "" {
		return fmt.Sprintf("Si tu veux, je peux t'en dire plus sur %s", e.cfg.Theme)
	}
	return "Si tu veux, je peux t'en dire plus"
}

// finishAnswer applies the post-processing invariants to the generated answer
// and its follow-ups: normalization, offer styling, trailing-question
// stripping, and one appended open-ended line unless already present.
func (e *engine) finishAnswer(answer string, followups []string) (string, []string) {
	if len(followups) == 0 {
		followups = []string{e.defaultFollowup()}
	}

	styled := make([]string, 0, len(followups))
	for _, f := range followups {
		styled = append(styled, styleAsOffer(f))
	}
	styled = NormalizeFollowups(styled, e.cfg.BannedFollowupWords)

	answer = stripTrailingQuestion(answer)

	opener := e.defaultFollowup()
	if len(styled) > 0 {
		opener = styled[0]
	}
	if !strings.Contains(strings.ToLower(answer), strings.ToLower(opener)) {
		answer = strings.TrimRight(answer, " \n\t") + "\n\n" + opener + "."
	}

	return answer, styled
}
