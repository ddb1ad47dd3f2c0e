package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"docchat-ai/internal/llm"
)

// Fixed lexicons for the triage rules. Matching is on the trimmed, lowercased
// question; these are data tables so rules stay independently testable.
var (
	greetingLexicon = []string{
		"bonjour", "salut", "bonsoir", "coucou", "hello", "hey", "yo", "hi",
		"bonjour !", "salut !",
	}

	acknowledgementLexicon = []string{
		"oui", "ok", "d'accord", "daccord", "continue", "vas-y", "vas y",
		"encore", "développe", "developpe", "la suite", "suite", "plus",
		"dis m'en plus", "et ensuite", "oui merci", "ok merci", "je veux bien",
	}

	smallTalkLexicon = []string{
		"ça va", "ca va", "ça va ?", "ca va ?", "comment ça va", "comment ca va",
		"comment vas-tu", "tu vas bien", "tu vas bien ?", "quoi de neuf",
		"merci", "merci beaucoup", "bonne journée", "bonne soirée", "à bientôt",
	}

	distancePatterns = []string{
		"combien de km", "combien de kilomètres", "combien de kilometres",
		"quelle distance", "distance entre", "à quelle distance", "a quelle distance",
	}

	vagueLexicon = []string{
		"tu sais quoi", "c'est quoi", "c est quoi", "quoi", "hein", "comment",
		"pourquoi", "dis-moi", "dis moi", "je sais pas", "je ne sais pas",
		"aucune idée", "explique",
	}
)

const maxAcknowledgementLength = 20

// rewriteAcknowledgement turns a short acknowledgement ("oui", "continue")
// into an explicit deepening request built from the conversation context.
// Topic priority: lastTopic, then lastQuestion, then the configured theme.
// Returns the question unchanged when it is not an acknowledgement.
func (e *engine) rewriteAcknowledgement(question string, conv ConversationContext) string {
	trimmed := strings.TrimSpace(question)
	if utf8.RuneCountInString(trimmed) > maxAcknowledgementLength {
		return question
	}
	normalized := strings.ToLower(strings.TrimRight(trimmed, " !."))
	if !matchesLexicon(normalized, acknowledgementLexicon) {
		return question
	}

	topic := strings.TrimSpace(conv.LastTopic)
	if topic == "" {
		topic = strings.TrimSpace(conv.LastQuestion)
	}
	if topic == "" {
		topic = e.cfg.Theme
	}
	if topic == "" {
		return question
	}

	return fmt.Sprintf(
		"Donne-moi plus de détails sur %s. Concentre-toi sur un aspect précis et évite de refaire un résumé général.",
		topic,
	)
}

// triageRule is one ordered classification rule. Rules are mutually exclusive:
// the first match wins.
type triageRule struct {
	name   string
	match  func(normalized, trimmed string) bool
	handle func(ctx context.Context, e *engine, question string, conv ConversationContext) (Envelope, error)
}

var triageRules = []triageRule{
	{
		name: "greeting",
		match: func(normalized, _ string) bool {
			return matchesLexicon(normalized, greetingLexicon)
		},
		handle: handleGreeting,
	},
	{
		name: "smalltalk",
		match: func(normalized, _ string) bool {
			return matchesLexicon(normalized, smallTalkLexicon)
		},
		handle: offTopicHandler("smalltalk"),
	},
	{
		name: "distance",
		match: func(normalized, _ string) bool {
			for _, pattern := range distancePatterns {
				if strings.Contains(normalized, pattern) {
					return true
				}
			}
			return false
		},
		handle: offTopicHandler("distance"),
	},
	{
		name: "math",
		match: func(_, trimmed string) bool {
			expr := extractMathExpression(trimmed)
			if expr == "" {
				return false
			}
			_, err := evalArithmetic(expr)
			return err == nil
		},
		handle: handleMath,
	},
	{
		name: "vague",
		match: func(normalized, trimmed string) bool {
			return utf8.RuneCountInString(trimmed) <= 3 || matchesLexicon(normalized, vagueLexicon)
		},
		handle: handleVague,
	},
}

// triage classifies the question. It returns (nil, nil) when the question
// needs retrieval; otherwise the returned envelope is terminal.
func (e *engine) triage(ctx context.Context, question string, conv ConversationContext) (*Envelope, string, error) {
	trimmed := strings.TrimSpace(question)
	normalized := strings.ToLower(trimmed)

	for _, rule := range triageRules {
		if rule.match(normalized, trimmed) {
			env, err := rule.handle(ctx, e, trimmed, conv)
			if err != nil {
				return nil, rule.name, err
			}
			return &env, rule.name, nil
		}
	}
	return nil, "retrieval", nil
}

func matchesLexicon(normalized string, lexicon []string) bool {
	for _, entry := range lexicon {
		if normalized == entry {
			return true
		}
	}
	return false
}

func handleGreeting(_ context.Context, e *engine, question string, conv ConversationContext) (Envelope, error) {
	return Envelope{
		Answer:    e.cfg.Welcome,
		Sources:   []Source{},
		Found:     true,
		Followups: []string{},
		Metadata:  &Metadata{Intent: "greeting"},
		Context:   e.echoContext(question, e.cfg.Welcome, conv),
	}, nil
}

// offTopicHandler builds the handler for a category that may be gated off.
// Disallowed categories get a guidance answer; allowed ones get a short polite
// reply from the model, steered back to the domain theme.
func offTopicHandler(category string) func(context.Context, *engine, string, ConversationContext) (Envelope, error) {
	return func(ctx context.Context, e *engine, question string, conv ConversationContext) (Envelope, error) {
		if !e.cfg.allowsTopic(category) {
			return e.guidanceEnvelope(question, category, conv), nil
		}

		prompt := fmt.Sprintf("Réponds très brièvement et poliment à ce message, en une ou deux phrases : %q", question)
		reply, err := e.generator.Complete(ctx, llm.ChatParams{
			Model:       e.cfg.FallbackModel,
			Messages:    []llm.ChatMessage{{Role: "user", Content: prompt}},
			Temperature: e.cfg.FallbackTemperature,
			MaxTokens:   e.cfg.FallbackMaxTokens,
		})
		if err != nil {
			return Envelope{}, WrapError(err, "failed to generate off-topic reply")
		}

		answer := strings.TrimSpace(reply)
		if e.cfg.Redirect != "" {
			answer = answer + " " + e.cfg.Redirect
		}
		return Envelope{
			Answer:    answer,
			Sources:   []Source{},
			Found:     true,
			Followups: []string{},
			Metadata:  &Metadata{Intent: category, Model: e.cfg.FallbackModel},
			Context:   e.echoContext(question, answer, conv),
		}, nil
	}
}

func handleMath(_ context.Context, e *engine, question string, conv ConversationContext) (Envelope, error) {
	if !e.cfg.allowsTopic("math") {
		return e.guidanceEnvelope(question, "math", conv), nil
	}

	expr := extractMathExpression(question)
	result, err := evalArithmetic(expr)
	if err != nil {
		// The rule matched, so this should not happen; treat as disallowed.
		return e.guidanceEnvelope(question, "math", conv), nil
	}

	answer := fmt.Sprintf("%s = %s.", strings.TrimSpace(expr), formatMathResult(result))
	if e.cfg.Redirect != "" {
		answer = answer + " " + e.cfg.Redirect
	}
	return Envelope{
		Answer:    answer,
		Sources:   []Source{},
		Found:     true,
		Followups: []string{},
		Metadata:  &Metadata{Intent: "math"},
		Context:   e.echoContext(question, answer, conv),
	}, nil
}

func handleVague(_ context.Context, e *engine, question string, conv ConversationContext) (Envelope, error) {
	var b strings.Builder
	b.WriteString("Peux-tu préciser ta question ?")
	if len(e.cfg.Topics) > 0 {
		b.WriteString(" Par exemple, je peux t'aider sur :")
		for _, topic := range e.cfg.Topics {
			b.WriteString("\n- ")
			b.WriteString(topic)
		}
	}
	answer := b.String()
	return Envelope{
		Answer:    answer,
		Sources:   []Source{},
		Found:     false,
		Followups: []string{},
		Metadata:  &Metadata{Intent: "vague"},
		Context:   e.echoContext(question, answer, conv),
	}, nil
}

// guidanceEnvelope is the polite refusal for off-topic categories that are
// not enabled in the persona.
func (e *engine) guidanceEnvelope(question, category string, conv ConversationContext) Envelope {
	theme := e.cfg.Theme
	if theme == "" {
		theme = "mon domaine"
	}
	answer := fmt.Sprintf("Je suis là pour t'aider sur %s. Pose-moi une question à ce sujet !", theme)
	return Envelope{
		Answer:    answer,
		Sources:   []Source{},
		Found:     false,
		Followups: []string{},
		Metadata:  &Metadata{Intent: category},
		Context:   e.echoContext(question, answer, conv),
	}
}
