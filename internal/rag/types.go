package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_clients.go -package=mocks docchat-ai/internal/rag Embedder,Searcher,Generator

import (
	"context"

	"docchat-ai/internal/llm"
	"docchat-ai/internal/vectorstore"
)

// Embedder turns a question into a vector.
// Defined from the pipeline's perspective so tests can substitute fakes.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Searcher performs similarity search against the vector store.
type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64) ([]vectorstore.ScoredChunk, error)
}

// Generator produces chat completions.
type Generator interface {
	Complete(ctx context.Context, params llm.ChatParams) (string, error)
}

// ConversationContext is caller-supplied state, read-only within one call.
// Nothing is persisted server-side; the caller sends it back on each request.
type ConversationContext struct {
	ConversationID string `json:"conversation_id,omitempty"`
	LastTopic      string `json:"last_topic,omitempty"`
	LastAnswer     string `json:"last_answer,omitempty"`
	LastQuestion   string `json:"last_question,omitempty"`
}

// Source is a deduplicated reference to a document that contributed context.
type Source struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Date   string `json:"date"`
	// Score is the similarity score as a percentage, rounded.
	Score int `json:"score"`
}

// ContextEcho is handed back to the caller to pass on the next request.
type ContextEcho struct {
	LastTopic    string `json:"last_topic"`
	LastAnswer   string `json:"last_answer"`
	LastQuestion string `json:"last_question"`
}

// Metadata describes how an answer was produced.
type Metadata struct {
	Model        string  `json:"model,omitempty"`
	Intent       string  `json:"intent,omitempty"`
	Threshold    float64 `json:"threshold,omitempty"`
	ChunksUsed   int     `json:"chunks_used,omitempty"`
	FallbackUsed bool    `json:"fallback_used,omitempty"`
}

// Envelope is the structured answer returned to the caller.
type Envelope struct {
	Answer    string      `json:"answer"`
	Sources   []Source    `json:"sources"`
	Found     bool        `json:"found"`
	Followups []string    `json:"followups"`
	Raw       string      `json:"raw,omitempty"`
	Metadata  *Metadata   `json:"metadata,omitempty"`
	Context   ContextEcho `json:"context"`
}

// Config holds the pipeline's process-wide tuning, loaded once at startup and
// read-only during request handling.
type Config struct {
	ChatModel     string
	FallbackModel string

	Temperature         float64
	MaxTokens           int
	FallbackTemperature float64
	FallbackMaxTokens   int

	// Adaptive threshold bands and search limits.
	BaseThreshold  float64
	FloorThreshold float64
	CapThreshold   float64
	FallbackScore  float64
	MaxChunks      int

	// Token budgets.
	MaxTokensPerChunk int
	MaxContextTokens  int
	HardTokenCeiling  int

	// Persona.
	Theme                string
	Welcome              string
	Redirect             string
	Topics               []string
	AllowedTopics        []string
	BannedFollowupWords  []string
	AnswerWithoutContext bool
}

// allowsTopic reports whether an off-topic category may be engaged with.
func (c Config) allowsTopic(name string) bool {
	for _, t := range c.AllowedTopics {
		if t == name {
			return true
		}
	}
	return false
}
