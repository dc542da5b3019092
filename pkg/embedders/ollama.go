package embedders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/agenthub/agenthub/pkg/config"
)

// Serializes Ollama embedding requests. The llama runner crashes when it
// receives concurrent embedding requests.
var ollamaEmbedMu sync.Mutex

// OllamaEmbedder speaks the native Ollama embeddings API.
type OllamaEmbedder struct {
	cfg    *config.EmbedderProviderConfig
	client *http.Client
	model  string
}

var _ Embedder = (*OllamaEmbedder)(nil)

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func NewOllamaEmbedder(cfg *config.EmbedderProviderConfig) (*OllamaEmbedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedder config is required")
	}
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaEmbedder{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		model:  model,
	}, nil
}

func (e *OllamaEmbedder) ModelName() string { return e.model }

func (e *OllamaEmbedder) Dimension() int { return e.cfg.Dimension }

func (e *OllamaEmbedder) Close() error { return nil }

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ollamaEmbedMu.Lock()
	defer ollamaEmbedMu.Unlock()

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	baseURL := e.cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("received empty embedding")
	}
	return parsed.Embedding, nil
}

// EmbedBatch embeds texts one at a time. The native API has no batch endpoint.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}
