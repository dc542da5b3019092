package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/httpclient"
	"github.com/agenthub/agenthub/pkg/observability"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider speaks the OpenAI chat completions API. It also covers
// OpenAI-compatible gateways such as OpenRouter and vLLM.
type OpenAIProvider struct {
	cfg    *config.LLMProviderConfig
	client *httpclient.Client
}

var _ Provider = (*OpenAIProvider)(nil)

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *openAIError `json:"error,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// NewOpenAIProvider creates a provider from the given configuration.
func NewOpenAIProvider(cfg *config.LLMProviderConfig) (*OpenAIProvider, error) {
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
	client := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: timeout}),
		httpclient.WithHeaderParser(httpclient.ParseOpenAIRateLimitHeaders),
	)
	return &OpenAIProvider{cfg: cfg, client: client}, nil
}

// ModelName returns the configured model identifier.
func (p *OpenAIProvider) ModelName() string {
	return p.cfg.Model
}

// Close releases provider resources.
func (p *OpenAIProvider) Close() error {
	return nil
}

// Generate produces a completion for the given conversation.
func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message) (*Response, error) {
	tracer := observability.GetTracer("llms")
	ctx, span := tracer.Start(ctx, observability.SpanLLMRequest)
	defer span.End()

	span.SetAttributes(
		attribute.String(observability.AttrLLMModel, p.cfg.Model),
	)

	start := time.Now()
	resp, err := p.makeRequest(ctx, messages)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.cfg.Model, duration, 0, 0, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int(observability.AttrLLMTokensInput, resp.InputTokens),
		attribute.Int(observability.AttrLLMTokensOutput, resp.OutputTokens),
	)
	span.SetStatus(codes.Ok, "")
	observability.GetGlobalMetrics().RecordLLMCall(ctx, p.cfg.Model, duration, resp.InputTokens, resp.OutputTokens, nil)

	return resp, nil
}

func (p *OpenAIProvider) makeRequest(ctx context.Context, messages []Message) (*Response, error) {
	reqBody := openAIRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	baseURL := p.cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	url := baseURL + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// GetBody lets the retrying client replay the request body.
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	httpResp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(httpResp.StatusCode, respBody)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}

	model := parsed.Model
	if model == "" {
		model = p.cfg.Model
	}
	return &Response{
		Content:      parsed.Choices[0].Message.Content,
		Model:        model,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		FinishReason: parsed.Choices[0].FinishReason,
	}, nil
}

// parseErrorResponse extracts the API error message from a non-200 body.
func parseErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Error openAIError `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("API error (status %d): %s", statusCode, errResp.Error.Message)
	}
	return fmt.Errorf("API error (status %d): %s", statusCode, string(body))
}
