package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"docchat-ai/internal/contextutil"
	"docchat-ai/internal/llm"
	"docchat-ai/internal/rag"
)

const (
	maxQuestionLength       = 1000
	maxConversationIDLength = 100
	maxLastTopicLength      = 200
	maxLastAnswerLength     = 2000
	maxLastQuestionLength   = 500
)

// AskHandler handles HTTP requests for the question pipeline.
type AskHandler struct {
	engine rag.Engine
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(engine rag.Engine) *AskHandler {
	return &AskHandler{engine: engine}
}

// AskRequest represents the HTTP request payload.
// Conversation fields are advisory caller-side state; nothing is stored here.
type AskRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
	LastTopic      string `json:"last_topic,omitempty"`
	LastAnswer     string `json:"last_answer,omitempty"`
	LastQuestion   string `json:"last_question,omitempty"`
}

// RawResponse is returned in raw mode (?raw=true): the unprocessed model
// output plus the sources that fed it.
type RawResponse struct {
	Raw     string       `json:"raw"`
	Sources []rag.Source `json:"sources,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles POST /ask. The response body is the answer envelope.
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		logger.WarnContext(ctx, "empty question in request")
		h.writeError(w, http.StatusBadRequest, "Question is required")
		return
	}
	if utf8.RuneCountInString(question) > maxQuestionLength {
		logger.WarnContext(ctx, "question too long", "length", utf8.RuneCountInString(question))
		h.writeError(w, http.StatusBadRequest, "Question must be at most 1000 characters")
		return
	}

	// Conversation fields over their caps are truncated, not rejected: they
	// are advisory and a stale long answer should not fail the request.
	conv := rag.ConversationContext{
		ConversationID: truncate(req.ConversationID, maxConversationIDLength),
		LastTopic:      truncate(req.LastTopic, maxLastTopicLength),
		LastAnswer:     truncate(req.LastAnswer, maxLastAnswerLength),
		LastQuestion:   truncate(req.LastQuestion, maxLastQuestionLength),
	}

	envelope, err := h.engine.ProcessQuestion(ctx, question, conv)
	if err != nil {
		h.handleEngineError(ctx, w, err)
		return
	}

	rawMode := false
	if rawParam := r.URL.Query().Get("raw"); rawParam != "" {
		rawMode = strings.ToLower(rawParam) == "true" || rawParam == "1"
	}

	w.Header().Set("Content-Type", "application/json")
	if rawMode {
		raw := envelope.Raw
		if raw == "" {
			raw = envelope.Answer
		}
		if err := json.NewEncoder(w).Encode(RawResponse{Raw: raw, Sources: envelope.Sources}); err != nil {
			logger.ErrorContext(ctx, "failed to encode response", "error", err)
		}
		return
	}

	// Raw model output stays server-side unless explicitly requested.
	envelope.Raw = ""
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handleEngineError maps pipeline errors to HTTP status codes. The caller
// never sees a raw upstream error as-is.
func (h *AskHandler) handleEngineError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "question pipeline error", "error", err)

	var validationErr *rag.ValidationError
	if errors.As(err, &validationErr) {
		h.writeError(w, http.StatusBadRequest, validationErr.Error())
		return
	}

	// A context-length error escaping the engine means the fallback path
	// failed too; give the caller something actionable rather than a 502.
	if llm.IsContextLengthError(err) {
		h.writeError(w, http.StatusBadRequest,
			"La question et son contexte sont trop longs. Essaie une question plus courte.")
		return
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "failed to search") || strings.Contains(errMsg, "qdrant") {
		h.writeError(w, http.StatusServiceUnavailable, "Vector store unavailable")
		return
	}
	if strings.Contains(errMsg, "embed") || strings.Contains(errMsg, "generate") {
		h.writeError(w, http.StatusBadGateway, "External service error")
		return
	}

	h.writeError(w, http.StatusInternalServerError, "Internal server error")
}

// writeError writes an error response.
func (h *AskHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
