package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080", "test-key")
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.BaseURL != "http://localhost:8080" {
		t.Errorf("NewClient() BaseURL = %v, want http://localhost:8080", client.BaseURL)
	}
}

func TestClient_Complete(t *testing.T) {
	tests := []struct {
		name       string
		params     ChatParams
		serverResp func(t *testing.T, w http.ResponseWriter, r *http.Request)
		want       string
		wantErr    bool
		errSubstr  string
	}{
		{
			name: "successful completion",
			params: ChatParams{
				Model:       "test-model",
				Messages:    []ChatMessage{{Role: "user", Content: "Bonjour"}},
				Temperature: 0.4,
				MaxTokens:   700,
			},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/chat/completions" {
					t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
					t.Errorf("Authorization = %q", got)
				}

				var req ChatRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decode request: %v", err)
				}
				if req.Model != "test-model" || req.MaxTokens != 700 {
					t.Errorf("request = %+v", req)
				}

				resp := ChatResponse{
					Choices: []ChatChoice{
						{Message: ChatChoiceMessage{Role: "assistant", Content: "Salut !"}},
					},
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(resp)
			},
			want: "Salut !",
		},
		{
			name:   "upstream error body carried in error",
			params: ChatParams{Model: "test-model"},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte("this model's maximum context length is 4096 tokens"))
			},
			wantErr:   true,
			errSubstr: "maximum context length",
		},
		{
			name:   "no choices",
			params: ChatParams{Model: "test-model"},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(ChatResponse{})
			},
			wantErr:   true,
			errSubstr: "no choices",
		},
		{
			name:   "malformed response",
			params: ChatParams{Model: "test-model"},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
			wantErr:   true,
			errSubstr: "failed to decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.serverResp(t, w, r)
			}))
			defer server.Close()

			client := NewClient(server.URL, "test-key")
			got, err := client.Complete(context.Background(), tt.params)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Complete() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !strings.Contains(err.Error(), tt.errSubstr) {
					t.Errorf("error = %v, want substring %q", err, tt.errSubstr)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Complete() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_CompleteContextLengthErrorDetectable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"context_length_exceeded"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.Complete(context.Background(), ChatParams{Model: "test-model"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsContextLengthError(err) {
		t.Errorf("IsContextLengthError(%v) = false, want true", err)
	}
}
