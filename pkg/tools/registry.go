package tools

import (
	"fmt"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/registry"
)

// AdapterRegistry holds instantiated tool adapters keyed by tool name.
type AdapterRegistry struct {
	*registry.BaseRegistry[Adapter]
}

func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{
		BaseRegistry: registry.NewBaseRegistry[Adapter](),
	}
}

func (r *AdapterRegistry) RegisterAdapter(adapter Adapter) error {
	if adapter == nil {
		return fmt.Errorf("adapter cannot be nil")
	}
	if adapter.Name() == "" {
		return fmt.Errorf("adapter name cannot be empty")
	}
	return r.Register(adapter.Name(), adapter)
}

// CreateAdapterFromSpec instantiates an adapter for the spec and registers
// it under the tool's name.
func (r *AdapterRegistry) CreateAdapterFromSpec(spec config.ToolSpec, searcher DocumentSearcher) (Adapter, error) {
	adapter, err := NewAdapter(spec, searcher)
	if err != nil {
		return nil, err
	}
	if err := r.RegisterAdapter(adapter); err != nil {
		return nil, err
	}
	return adapter, nil
}

func (r *AdapterRegistry) GetAdapter(name string) (Adapter, error) {
	adapter, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("adapter '%s' not found", name)
	}
	return adapter, nil
}

// NewAdapter dispatches on the tool kind. searcher is only required for
// DOCUMENT_SEARCH tools.
func NewAdapter(spec config.ToolSpec, searcher DocumentSearcher) (Adapter, error) {
	switch spec.Kind {
	case config.ToolHTTPGet, config.ToolHTTPPost:
		return NewHTTPAdapter(spec)
	case config.ToolDBQuery:
		return NewDBQueryAdapter(spec)
	case config.ToolDocumentSearch:
		return NewDocumentSearchAdapter(spec, searcher)
	case config.ToolOCR:
		return NewOCRAdapter(spec)
	default:
		return nil, fmt.Errorf("tool '%s': unsupported kind %q", spec.Name, spec.Kind)
	}
}
