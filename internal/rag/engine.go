package rag

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"docchat-ai/internal/contextutil"
	"docchat-ai/internal/llm"
	"docchat-ai/internal/tokens"
	"docchat-ai/internal/vectorstore"
)

// Engine answers questions with retrieval-augmented generation.
type Engine interface {
	// ProcessQuestion runs the full pipeline: acknowledgement rewrite, intent
	// triage, retrieval with adaptive threshold, token-budget filtering,
	// generation with model fallback, and post-processing.
	ProcessQuestion(ctx context.Context, question string, conv ConversationContext) (Envelope, error)
}

// engine implements the Engine interface. It holds no per-request state:
// configuration is read-only after construction and the clients are safe for
// concurrent use.
type engine struct {
	embedder  Embedder
	searcher  Searcher
	generator Generator
	cfg       Config
	logger    *slog.Logger
}

// NewEngine creates a new question-processing engine.
func NewEngine(embedder Embedder, searcher Searcher, generator Generator, cfg Config) Engine {
	return &engine{
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
		cfg:       cfg,
		logger:    slog.Default(),
	}
}

// ProcessQuestion answers one question end to end.
func (e *engine) ProcessQuestion(ctx context.Context, question string, conv ConversationContext) (Envelope, error) {
	logger := contextutil.LoggerFromContext(ctx)

	original := strings.TrimSpace(question)
	if original == "" {
		return Envelope{}, &ValidationError{Field: "question", Message: "cannot be empty"}
	}

	// An acknowledgement ("oui", "continue") becomes an explicit deepening
	// request before any classification. The adaptive threshold keys off the
	// original question's word count, not the rewritten one.
	effective := e.rewriteAcknowledgement(original, conv)
	if effective != original {
		logger.InfoContext(ctx, "acknowledgement rewritten", "original", original, "rewritten", effective)
	}

	env, intent, err := e.triage(ctx, effective, conv)
	if err != nil {
		return Envelope{}, err
	}
	if env != nil {
		logger.InfoContext(ctx, "question handled without retrieval", "intent", intent)
		return *env, nil
	}

	vector, err := e.embedder.EmbedText(ctx, effective)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed question", "error", err)
		return Envelope{}, WrapError(err, "failed to embed question")
	}

	threshold := e.cfg.adaptiveThreshold(countWords(original))
	results, err := e.searcher.Search(ctx, vector, e.cfg.MaxChunks, threshold)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search vector store", "error", err)
		return Envelope{}, WrapError(err, "failed to search vector store")
	}

	// One retry at the fallback score when the adaptive threshold was stricter
	// and came back empty.
	if len(results) == 0 && threshold > e.cfg.FallbackScore {
		logger.InfoContext(ctx, "no results, retrying at fallback score",
			"threshold", threshold, "fallback_score", e.cfg.FallbackScore)
		results, err = e.searcher.Search(ctx, vector, e.cfg.MaxChunks, e.cfg.FallbackScore)
		if err != nil {
			logger.ErrorContext(ctx, "failed to search vector store", "error", err)
			return Envelope{}, WrapError(err, "failed to search vector store")
		}
	}

	if len(results) == 0 {
		if e.cfg.AnswerWithoutContext {
			return e.answerWithoutContext(ctx, original, effective, conv, threshold)
		}
		logger.InfoContext(ctx, "no results at fallback score", "question", original)
		return e.noResultsEnvelope(original, conv, threshold), nil
	}

	filtered := e.filterByTokenBudget(results)
	if len(filtered) == 0 {
		logger.WarnContext(ctx, "no chunk fits the token budget", "results", len(results))
		return e.tooLongEnvelope(original, conv), nil
	}

	// Progressive reduction: drop the lowest-ranked chunk while the combined
	// context and question overflow the hard ceiling. At least one chunk is
	// always kept.
	contextText := buildContext(filtered)
	for len(filtered) > 1 && tokens.Estimate(contextText)+tokens.Estimate(effective) > e.cfg.HardTokenCeiling {
		filtered = filtered[:len(filtered)-1]
		contextText = buildContext(filtered)
	}

	logger.InfoContext(ctx, "context assembled",
		"chunks", len(filtered), "threshold", threshold,
		"context_tokens", tokens.Estimate(contextText))

	raw, fallbackUsed, err := e.generate(ctx, effective, contextText)
	if err != nil {
		logger.ErrorContext(ctx, "failed to generate answer", "error", err)
		return Envelope{}, err
	}

	answer, followups := parseModelOutput(raw)
	answer, followups = e.finishAnswer(answer, followups)

	model := e.cfg.ChatModel
	if fallbackUsed {
		model = e.cfg.FallbackModel
	}

	return Envelope{
		Answer:    answer,
		Sources:   buildSources(filtered),
		Found:     true,
		Followups: followups,
		Raw:       raw,
		Metadata: &Metadata{
			Model:        model,
			Intent:       "retrieval",
			Threshold:    threshold,
			ChunksUsed:   len(filtered),
			FallbackUsed: fallbackUsed,
		},
		Context: e.echoContext(original, answer, conv),
	}, nil
}

// generate calls the primary model and, only on a context-length error,
// retries exactly once with the smaller fallback model and a plain prompt.
// Any other failure propagates.
func (e *engine) generate(ctx context.Context, question, contextText string) (raw string, fallbackUsed bool, err error) {
	raw, err = e.generator.Complete(ctx, llm.ChatParams{
		Model:       e.cfg.ChatModel,
		Messages:    []llm.ChatMessage{{Role: "user", Content: e.buildPrompt(question, contextText)}},
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	})
	if err == nil {
		return raw, false, nil
	}
	if !llm.IsContextLengthError(err) {
		return "", false, WrapError(err, "failed to generate answer")
	}

	contextutil.LoggerFromContext(ctx).WarnContext(ctx, "context length exceeded, retrying with fallback model",
		"model", e.cfg.FallbackModel, "error", err)

	raw, err = e.generator.Complete(ctx, llm.ChatParams{
		Model:       e.cfg.FallbackModel,
		Messages:    []llm.ChatMessage{{Role: "user", Content: e.buildFallbackPrompt(question, contextText)}},
		Temperature: e.cfg.FallbackTemperature,
		MaxTokens:   e.cfg.FallbackMaxTokens,
	})
	if err != nil {
		return "", true, WrapError(err, "fallback generation failed")
	}
	return raw, true, nil
}

// answerWithoutContext generates a general answer when retrieval found
// nothing and the persona opts into that behavior.
func (e *engine) answerWithoutContext(ctx context.Context, original, effective string, conv ConversationContext, threshold float64) (Envelope, error) {
	raw, err := e.generator.Complete(ctx, llm.ChatParams{
		Model:       e.cfg.ChatModel,
		Messages:    []llm.ChatMessage{{Role: "user", Content: e.buildNoContextPrompt(effective)}},
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.FallbackMaxTokens,
	})
	if err != nil {
		return Envelope{}, WrapError(err, "failed to generate answer")
	}

	answer, followups := parseModelOutput(raw)
	answer, followups = e.finishAnswer(answer, followups)
	return Envelope{
		Answer:    answer,
		Sources:   []Source{},
		Found:     true,
		Followups: followups,
		Raw:       raw,
		Metadata:  &Metadata{Model: e.cfg.ChatModel, Intent: "no_context", Threshold: threshold},
		Context:   e.echoContext(original, answer, conv),
	}, nil
}

// noResultsEnvelope is the guidance answer when nothing matched even at the
// fallback score. Zero results is a designed-for state, not an error.
func (e *engine) noResultsEnvelope(question string, conv ConversationContext, threshold float64) Envelope {
	theme := e.cfg.Theme
	if theme == "" {
		theme = "ce que je connais"
	}
	answer := fmt.Sprintf(
		"Je n'ai rien trouvé sur ce sujet. Essaie de reformuler ta question, ou pose-moi une question sur %s.", theme)
	followups := make([]string, 0, len(e.cfg.Topics))
	for _, topic := range e.cfg.Topics {
		followups = append(followups, "Si tu veux, je peux t'aider sur "+topic)
	}
	return Envelope{
		Answer:    answer,
		Sources:   []Source{},
		Found:     false,
		Followups: NormalizeFollowups(followups, e.cfg.BannedFollowupWords),
		Metadata:  &Metadata{Intent: "no_results", Threshold: threshold},
		Context:   e.echoContext(question, answer, conv),
	}
}

// tooLongEnvelope is returned when not even a single chunk fits the budget.
func (e *engine) tooLongEnvelope(question string, conv ConversationContext) Envelope {
	answer := "Ta question demande trop de contexte pour que je puisse répondre d'un coup."
	return Envelope{
		Answer:  answer,
		Sources: []Source{},
		Found:   false,
		Followups: []string{
			"Si tu veux, je peux répondre à une question plus courte",
			"Si tu veux, découpe ta question en plusieurs parties",
		},
		Metadata: &Metadata{Intent: "too_long"},
		Context:  e.echoContext(question, answer, conv),
	}
}

// buildSources deduplicates sources by (title, author), keeping first-seen
// order. Scores are similarity percentages.
func buildSources(chunks []vectorstore.ScoredChunk) []Source {
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]Source, 0, len(chunks))
	for _, chunk := range chunks {
		key := strings.ToLower(chunk.Payload.Title) + "|" + strings.ToLower(chunk.Payload.Author)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		sources = append(sources, Source{
			Title:  chunk.Payload.Title,
			Author: chunk.Payload.Author,
			Date:   chunk.Payload.Date,
			Score:  int(math.Round(chunk.Score * 100)),
		})
	}
	return sources
}

// echoContext builds the advisory context handed back to the caller for the
// next request. The server keeps none of it.
func (e *engine) echoContext(question, answer string, conv ConversationContext) ContextEcho {
	topic := strings.TrimSpace(conv.LastTopic)
	if topic == "" {
		topic = question
	}
	return ContextEcho{
		LastTopic:    truncateRunes(topic, 200),
		LastAnswer:   truncateRunes(answer, 2000),
		LastQuestion: truncateRunes(question, 500),
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
