package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agenthub/agenthub/pkg/config"
)

func TestOllamaProvider_Generate(t *testing.T) {
	var gotReq ollamaRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("request path = %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaResponse{
			Model:           "llama3.1",
			Message:         Message{Role: RoleAssistant, Content: "Hi from llama"},
			Done:            true,
			DoneReason:      "stop",
			PromptEvalCount: 20,
			EvalCount:       5,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(&config.LLMProviderConfig{
		Provider: "ollama",
		Model:    "llama3.1",
		BaseURL:  server.URL,
	})
	if err != nil {
		t.Fatalf("NewOllamaProvider() error = %v", err)
	}

	resp, err := provider.Generate(context.Background(), []Message{{Role: RoleUser, Content: "Hi"}})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if resp.Content != "Hi from llama" {
		t.Errorf("Generate() content = %q", resp.Content)
	}
	if resp.InputTokens != 20 || resp.OutputTokens != 5 {
		t.Errorf("Generate() tokens = %d/%d, want 20/5", resp.InputTokens, resp.OutputTokens)
	}
	if gotReq.Stream {
		t.Error("request stream = true, want false")
	}
	if gotReq.Model != "llama3.1" {
		t.Errorf("request model = %q, want llama3.1", gotReq.Model)
	}
}

func TestOllamaProvider_Generate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(&config.LLMProviderConfig{
		Provider: "ollama",
		Model:    "missing-model",
		BaseURL:  server.URL,
	})
	if err != nil {
		t.Fatalf("NewOllamaProvider() error = %v", err)
	}

	_, err = provider.Generate(context.Background(), []Message{{Role: RoleUser, Content: "Hi"}})
	if err == nil {
		t.Error("Generate() expected error for 404 response")
	}
}
