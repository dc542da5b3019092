package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/observability"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaProvider speaks the native Ollama chat API.
type OllamaProvider struct {
	cfg    *config.LLMProviderConfig
	client *http.Client
}

var _ Provider = (*OllamaProvider)(nil)

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	DoneReason      string  `json:"done_reason"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

// NewOllamaProvider creates a provider from the given configuration.
func NewOllamaProvider(cfg *config.LLMProviderConfig) (*OllamaProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm config is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &OllamaProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// ModelName returns the configured model identifier.
func (p *OllamaProvider) ModelName() string {
	return p.cfg.Model
}

// Close releases provider resources.
func (p *OllamaProvider) Close() error {
	return nil
}

// Generate produces a completion for the given conversation.
func (p *OllamaProvider) Generate(ctx context.Context, messages []Message) (*Response, error) {
	options := map[string]any{}
	if p.cfg.Temperature != nil {
		options["temperature"] = *p.cfg.Temperature
	}
	if p.cfg.MaxTokens > 0 {
		options["num_predict"] = p.cfg.MaxTokens
	}

	reqBody := ollamaRequest{
		Model:    p.cfg.Model,
		Messages: messages,
		Stream:   false,
		Options:  options,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	baseURL := p.cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := p.client.Do(req)
	if err != nil {
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.cfg.Model, time.Since(start), 0, 0, err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		err := fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.cfg.Model, time.Since(start), 0, 0, err)
		return nil, err
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	observability.GetGlobalMetrics().RecordLLMCall(ctx, p.cfg.Model, time.Since(start),
		parsed.PromptEvalCount, parsed.EvalCount, nil)

	return &Response{
		Content:      parsed.Message.Content,
		Model:        parsed.Model,
		InputTokens:  parsed.PromptEvalCount,
		OutputTokens: parsed.EvalCount,
		FinishReason: parsed.DoneReason,
	}, nil
}
