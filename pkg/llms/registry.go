package llms

import (
	"fmt"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/registry"
)

// ProviderRegistry holds instantiated LLM providers keyed by name.
type ProviderRegistry struct {
	*registry.BaseRegistry[Provider]
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		BaseRegistry: registry.NewBaseRegistry[Provider](),
	}
}

func (r *ProviderRegistry) RegisterProvider(name string, provider Provider) error {
	if name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}
	return r.Register(name, provider)
}

// CreateProviderFromConfig instantiates a provider and registers it under name.
func (r *ProviderRegistry) CreateProviderFromConfig(name string, cfg *config.LLMProviderConfig) (Provider, error) {
	if name == "" {
		return nil, fmt.Errorf("provider name cannot be empty")
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	if err := r.RegisterProvider(name, provider); err != nil {
		return nil, fmt.Errorf("failed to register provider: %w", err)
	}
	return provider, nil
}

func (r *ProviderRegistry) GetProvider(name string) (Provider, error) {
	provider, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("LLM provider '%s' not found", name)
	}
	return provider, nil
}

// NewProvider instantiates a provider for the configured backend.
func NewProvider(cfg *config.LLMProviderConfig) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("LLM config cannot be nil")
	}
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(cfg)
	case "ollama":
		return NewOllamaProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, ollama)", cfg.Provider)
	}
}
