package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agenthub/agenthub/pkg/config"
)

func TestNewOpenAIProvider(t *testing.T) {
	cfg := &config.LLMProviderConfig{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "sk-test-key",
	}

	provider, err := NewOpenAIProvider(cfg)
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v, want nil", err)
	}
	if provider.ModelName() != "gpt-4o-mini" {
		t.Errorf("ModelName() = %v, want gpt-4o-mini", provider.ModelName())
	}
}

func TestNewOpenAIProvider_MissingModel(t *testing.T) {
	_, err := NewOpenAIProvider(&config.LLMProviderConfig{Provider: "openai"})
	if err == nil {
		t.Error("NewOpenAIProvider() expected error for missing model")
	}

	_, err = NewOpenAIProvider(nil)
	if err == nil {
		t.Error("NewOpenAIProvider() expected error for nil config")
	}
}

func TestOpenAIProvider_Generate(t *testing.T) {
	var gotAuth string
	var gotReq openAIRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		resp := map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"message":       map[string]string{"role": "assistant", "content": "Hello there"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 3},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	temp := 0.2
	provider, err := NewOpenAIProvider(&config.LLMProviderConfig{
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		BaseURL:     server.URL,
		APIKey:      "sk-test-key",
		Temperature: &temp,
		MaxTokens:   256,
	})
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}

	resp, err := provider.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are helpful."},
		{Role: RoleUser, Content: "Hi"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if resp.Content != "Hello there" {
		t.Errorf("Generate() content = %q, want %q", resp.Content, "Hello there")
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 3 {
		t.Errorf("Generate() tokens = %d/%d, want 12/3", resp.InputTokens, resp.OutputTokens)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("Generate() finish reason = %q, want stop", resp.FinishReason)
	}
	if gotAuth != "Bearer sk-test-key" {
		t.Errorf("Authorization header = %q, want bearer key", gotAuth)
	}
	if gotReq.Model != "gpt-4o-mini" {
		t.Errorf("request model = %q, want gpt-4o-mini", gotReq.Model)
	}
	if gotReq.Temperature == nil || *gotReq.Temperature != 0.2 {
		t.Errorf("request temperature = %v, want 0.2", gotReq.Temperature)
	}
	if len(gotReq.Messages) != 2 {
		t.Errorf("request messages = %d, want 2", len(gotReq.Messages))
	}
}

func TestOpenAIProvider_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "Incorrect API key provided",
				"type":    "invalid_request_error",
			},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(&config.LLMProviderConfig{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		BaseURL:  server.URL,
		APIKey:   "bad-key",
	})
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}

	_, err = provider.Generate(context.Background(), []Message{{Role: RoleUser, Content: "Hi"}})
	if err == nil {
		t.Fatal("Generate() expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "Incorrect API key provided") {
		t.Errorf("Generate() error = %v, want API error message", err)
	}
}

func TestOpenAIProvider_Generate_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"model": "gpt-4o-mini", "choices": []any{}})
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(&config.LLMProviderConfig{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		BaseURL:  server.URL,
	})
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}

	_, err = provider.Generate(context.Background(), []Message{{Role: RoleUser, Content: "Hi"}})
	if err == nil {
		t.Error("Generate() expected error for empty choices")
	}
}
