package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docchat-ai/internal/rag"
)

// stubEngine records the question passed in and returns canned results.
type stubEngine struct {
	envelope    rag.Envelope
	err         error
	gotQuestion string
	gotConv     rag.ConversationContext
}

func (s *stubEngine) ProcessQuestion(_ context.Context, question string, conv rag.ConversationContext) (rag.Envelope, error) {
	s.gotQuestion = question
	s.gotConv = conv
	return s.envelope, s.err
}

func postAsk(t *testing.T, handler *AskHandler, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAskHandlerSuccess(t *testing.T) {
	engine := &stubEngine{
		envelope: rag.Envelope{
			Answer:    "La Barre des Écrins culmine à 4102 mètres.",
			Sources:   []rag.Source{{Title: "Guide des Écrins", Author: "A. Martin", Date: "2021", Score: 91}},
			Found:     true,
			Followups: []string{"Je peux décrire la voie normale"},
			Raw:       `{"answer":"..."}`,
			Metadata:  &rag.Metadata{Intent: "retrieval", ChunksUsed: 1},
		},
	}
	handler := NewAskHandler(engine)

	rec := postAsk(t, handler, "/ask", AskRequest{Question: "Quel est le point culminant des Écrins ?"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var got rag.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Answer != engine.envelope.Answer {
		t.Errorf("answer = %q", got.Answer)
	}
	if len(got.Sources) != 1 || got.Sources[0].Score != 91 {
		t.Errorf("sources = %v", got.Sources)
	}
	if got.Raw != "" {
		t.Errorf("raw leaked without raw mode: %q", got.Raw)
	}
	if engine.gotQuestion != "Quel est le point culminant des Écrins ?" {
		t.Errorf("engine received question %q", engine.gotQuestion)
	}
}

func TestAskHandlerRawMode(t *testing.T) {
	engine := &stubEngine{
		envelope: rag.Envelope{
			Answer:  "Réponse finale.",
			Raw:     `{"answer":"Réponse brute"}`,
			Sources: []rag.Source{{Title: "T", Author: "A", Score: 80}},
			Found:   true,
		},
	}
	handler := NewAskHandler(engine)

	rec := postAsk(t, handler, "/ask?raw=true", AskRequest{Question: "une question"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got RawResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Raw != engine.envelope.Raw {
		t.Errorf("raw = %q, want %q", got.Raw, engine.envelope.Raw)
	}
	if len(got.Sources) != 1 {
		t.Errorf("sources = %v", got.Sources)
	}
}

func TestAskHandlerEmptyQuestion(t *testing.T) {
	handler := NewAskHandler(&stubEngine{})

	rec := postAsk(t, handler, "/ask", AskRequest{Question: "   "})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "Question is required" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestAskHandlerQuestionTooLong(t *testing.T) {
	handler := NewAskHandler(&stubEngine{})

	rec := postAsk(t, handler, "/ask", AskRequest{Question: strings.Repeat("é", 1001)})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAskHandlerTruncatesConversationFields(t *testing.T) {
	engine := &stubEngine{envelope: rag.Envelope{Answer: "ok", Found: true}}
	handler := NewAskHandler(engine)

	rec := postAsk(t, handler, "/ask", AskRequest{
		Question:   "une question valide",
		LastTopic:  strings.Repeat("t", 500),
		LastAnswer: strings.Repeat("a", 5000),
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(engine.gotConv.LastTopic) != 200 {
		t.Errorf("last topic length = %d, want 200", len(engine.gotConv.LastTopic))
	}
	if len(engine.gotConv.LastAnswer) != 2000 {
		t.Errorf("last answer length = %d, want 2000", len(engine.gotConv.LastAnswer))
	}
}

func TestAskHandlerInvalidBody(t *testing.T) {
	handler := NewAskHandler(&stubEngine{})

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAskHandlerMethodNotAllowed(t *testing.T) {
	handler := NewAskHandler(&stubEngine{})

	req := httptest.NewRequest(http.MethodGet, "/ask", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestAskHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "validation error",
			err:        &rag.ValidationError{Field: "question", Message: "cannot be empty"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "context length after failed fallback",
			err:        errors.New("fallback generation failed: bad status 400: maximum context length exceeded"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "search failure",
			err:        errors.New("failed to search vector store: connection refused"),
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "embedding failure",
			err:        errors.New("failed to embed question: connection refused"),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "generation failure",
			err:        errors.New("failed to generate answer: connection refused"),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unknown failure",
			err:        errors.New("something unexpected"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAskHandler(&stubEngine{err: tt.err})
			rec := postAsk(t, handler, "/ask", AskRequest{Question: "une question"})
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
