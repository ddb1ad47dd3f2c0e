package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewEmbeddingsClient(t *testing.T) {
	client := NewEmbeddingsClient("http://localhost:8081", "test-key", "test-model", 768)
	if client == nil {
		t.Fatal("NewEmbeddingsClient() returned nil")
	}
	if client.BaseURL != "http://localhost:8081" {
		t.Errorf("NewEmbeddingsClient() BaseURL = %v, want http://localhost:8081", client.BaseURL)
	}
	if client.ExpectedSize != 768 {
		t.Errorf("NewEmbeddingsClient() ExpectedSize = %v, want 768", client.ExpectedSize)
	}
}

func TestEmbeddingsClient_EmbedTexts(t *testing.T) {
	tests := []struct {
		name         string
		texts        []string
		expectedSize int
		serverResp   func(w http.ResponseWriter, r *http.Request)
		wantErr      bool
		wantCount    int
	}{
		{
			name:         "successful batch embedding",
			texts:        []string{"premier texte", "second texte"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				resp := EmbeddingsResponse{
					Data: []EmbeddingData{
						{Embedding: []float64{0.1, 0.2, 0.3, 0.4}},
						{Embedding: []float64{0.5, 0.6, 0.7, 0.8}},
					},
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(resp)
			},
			wantCount: 2,
		},
		{
			name:         "empty input",
			texts:        []string{},
			expectedSize: 4,
			serverResp:   func(w http.ResponseWriter, r *http.Request) {},
			wantErr:      true,
		},
		{
			name:         "count mismatch",
			texts:        []string{"un", "deux"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				resp := EmbeddingsResponse{
					Data: []EmbeddingData{{Embedding: []float64{0.1, 0.2, 0.3, 0.4}}},
				}
				_ = json.NewEncoder(w).Encode(resp)
			},
			wantErr: true,
		},
		{
			name:         "size mismatch",
			texts:        []string{"un"},
			expectedSize: 768,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				resp := EmbeddingsResponse{
					Data: []EmbeddingData{{Embedding: []float64{0.1, 0.2}}},
				}
				_ = json.NewEncoder(w).Encode(resp)
			},
			wantErr: true,
		},
		{
			name:         "upstream error",
			texts:        []string{"un"},
			expectedSize: 4,
			serverResp: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("internal error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResp))
			defer server.Close()

			client := NewEmbeddingsClient(server.URL, "test-key", "test-model", tt.expectedSize)
			got, err := client.EmbedTexts(context.Background(), tt.texts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EmbedTexts() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != tt.wantCount {
				t.Errorf("EmbedTexts() returned %d vectors, want %d", len(got), tt.wantCount)
			}
			for i, vec := range got {
				if len(vec) != tt.expectedSize {
					t.Errorf("vector %d has size %d, want %d", i, len(vec), tt.expectedSize)
				}
			}
		})
	}
}

func TestEmbeddingsClient_EmbedText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req EmbeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Input) != 1 || req.Input[0] != "une question" {
			t.Errorf("request input = %v", req.Input)
		}
		resp := EmbeddingsResponse{
			Data: []EmbeddingData{{Embedding: []float64{0.1, 0.2, 0.3}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewEmbeddingsClient(server.URL, "test-key", "test-model", 3)
	vec, err := client.EmbedText(context.Background(), "une question")
	if err != nil {
		t.Fatalf("EmbedText() error = %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("EmbedText() vector size = %d, want 3", len(vec))
	}

	if _, err := client.EmbedText(context.Background(), ""); err == nil {
		t.Error("EmbedText(empty) expected error, got nil")
	}
}
