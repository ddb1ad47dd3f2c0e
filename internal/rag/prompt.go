package rag

import (
	"fmt"
	"strings"
)

// buildPrompt assembles the primary generation prompt: themed preamble,
// numbered context blocks, the question, and the strict JSON output contract.
func (e *engine) buildPrompt(question, contextText string) string {
	var b strings.Builder

	if e.cfg.Theme != "" {
		fmt.Fprintf(&b, "Tu es un assistant spécialisé dans %s.\n\n", e.cfg.Theme)
	} else {
		b.WriteString("Tu es un assistant qui répond à partir d'extraits fournis.\n\n")
	}

	b.WriteString("Voici des extraits à utiliser comme seule source d'information :\n\n")
	b.WriteString(contextText)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Question : %s\n\n", question)

	b.WriteString("Règles à respecter strictement :\n")
	b.WriteString("- Réponds UNIQUEMENT à partir des extraits ci-dessus.\n")
	b.WriteString("- Si les extraits ne suffisent pas pour répondre, dis-le simplement.\n")
	b.WriteString("- Ne termine jamais ta réponse par une question.\n")
	b.WriteString("- Propose 2 à 3 pistes pour continuer, formulées comme des offres d'aide (« Si tu veux, ... »), jamais comme des questions.\n")
	b.WriteString("- Les pistes ne doivent jamais mentionner de documents, de sources ni de fichiers.\n\n")
	b.WriteString(`Réponds STRICTEMENT au format JSON suivant, sans texte autour : {"answer": "...", "followups": ["...", "..."]}`)

	return b.String()
}

// buildFallbackPrompt is the plain prompt used with the smaller model when the
// primary call fails on context length. No JSON contract: the raw reply is
// taken as the answer.
func (e *engine) buildFallbackPrompt(question, contextText string) string {
	var b strings.Builder
	if e.cfg.Theme != "" {
		fmt.Fprintf(&b, "Tu es un assistant spécialisé dans %s. ", e.cfg.Theme)
	}
	b.WriteString("Réponds brièvement à la question en t'appuyant uniquement sur ces extraits :\n\n")
	b.WriteString(contextText)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Question : %s", question)
	return b.String()
}

// buildNoContextPrompt is used when retrieval found nothing and the persona
// allows answering generally.
func (e *engine) buildNoContextPrompt(question string) string {
	var b strings.Builder
	if e.cfg.Theme != "" {
		fmt.Fprintf(&b, "Tu es un assistant spécialisé dans %s. ", e.cfg.Theme)
	}
	fmt.Fprintf(&b, "Réponds brièvement et prudemment à cette question, en précisant que tu n'as pas de source précise : %s", question)
	return b.String()
}
