package embedders

import (
	"context"
	"fmt"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/registry"
)

// Embedder converts text into dense vectors.
type Embedder interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension this embedder produces.
	Dimension() int

	// ModelName returns the configured model identifier.
	ModelName() string

	Close() error
}

type EmbedderRegistry struct {
	*registry.BaseRegistry[Embedder]
}

func NewEmbedderRegistry() *EmbedderRegistry {
	return &EmbedderRegistry{
		BaseRegistry: registry.NewBaseRegistry[Embedder](),
	}
}

func (r *EmbedderRegistry) RegisterEmbedder(name string, embedder Embedder) error {
	if name == "" {
		return fmt.Errorf("embedder name cannot be empty")
	}
	if embedder == nil {
		return fmt.Errorf("embedder cannot be nil")
	}
	return r.Register(name, embedder)
}

// CreateEmbedderFromConfig instantiates an embedder and registers it under name.
func (r *EmbedderRegistry) CreateEmbedderFromConfig(name string, cfg *config.EmbedderProviderConfig) (Embedder, error) {
	if name == "" {
		return nil, fmt.Errorf("embedder name cannot be empty")
	}
	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	if err := r.RegisterEmbedder(name, embedder); err != nil {
		return nil, fmt.Errorf("failed to register embedder: %w", err)
	}
	return embedder, nil
}

func (r *EmbedderRegistry) GetEmbedder(name string) (Embedder, error) {
	embedder, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("embedder '%s' not found", name)
	}
	return embedder, nil
}

// NewEmbedder instantiates an embedder for the configured backend.
func NewEmbedder(cfg *config.EmbedderProviderConfig) (Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedder config cannot be nil")
	}
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIEmbedder(cfg)
	case "ollama":
		return NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s (supported: openai, ollama)", cfg.Provider)
	}
}
