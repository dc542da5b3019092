package databases

import (
	"context"
	"fmt"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/registry"
)

// TenantIDField is the metadata key every stored vector carries and every
// search and delete must filter on.
const TenantIDField = "tenant_id"

// Provider is a vector store backend.
type Provider interface {
	// Upsert stores a vector with its metadata. Metadata must include
	// the tenant_id field.
	Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error

	// Search returns the topK nearest vectors matching the filter. The
	// filter must include tenant_id.
	Search(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]SearchResult, error)

	// DeleteByFilter removes all vectors matching the filter. The filter
	// must include tenant_id.
	DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error

	// Count returns the number of stored vectors matching the filter.
	// The filter must include tenant_id.
	Count(ctx context.Context, collection string, filter map[string]any) (int, error)

	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	DeleteCollection(ctx context.Context, collection string) error

	Close() error
}

// SearchResult is a scored match. Score is cosine similarity in [0, 1],
// higher is closer.
type SearchResult struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// IsolationViolationError reports a search or delete attempted without a
// tenant_id filter.
type IsolationViolationError struct {
	Collection string
	Operation  string
}

func (e *IsolationViolationError) Error() string {
	return fmt.Sprintf("%s on collection '%s' requires a tenant_id filter", e.Operation, e.Collection)
}

// requireTenantFilter rejects filters that would cross tenant boundaries.
func requireTenantFilter(collection, operation string, filter map[string]any) error {
	v, ok := filter[TenantIDField]
	if !ok {
		return &IsolationViolationError{Collection: collection, Operation: operation}
	}
	if s, isStr := v.(string); isStr && s == "" {
		return &IsolationViolationError{Collection: collection, Operation: operation}
	}
	return nil
}

type DatabaseRegistry struct {
	*registry.BaseRegistry[Provider]
}

func NewDatabaseRegistry() *DatabaseRegistry {
	return &DatabaseRegistry{
		BaseRegistry: registry.NewBaseRegistry[Provider](),
	}
}

func (r *DatabaseRegistry) RegisterDatabase(name string, provider Provider) error {
	if name == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if provider == nil {
		return fmt.Errorf("database provider cannot be nil")
	}
	return r.Register(name, provider)
}

// CreateDatabaseFromConfig instantiates a provider and registers it under name.
func (r *DatabaseRegistry) CreateDatabaseFromConfig(name string, cfg *config.VectorStoreConfig) (Provider, error) {
	if name == "" {
		return nil, fmt.Errorf("database name cannot be empty")
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	if err := r.RegisterDatabase(name, provider); err != nil {
		return nil, fmt.Errorf("failed to register database: %w", err)
	}
	return provider, nil
}

func (r *DatabaseRegistry) GetDatabase(name string) (Provider, error) {
	provider, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("database provider '%s' not found", name)
	}
	return provider, nil
}

// NewProvider instantiates a vector store for the configured backend.
func NewProvider(cfg *config.VectorStoreConfig) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vector store config cannot be nil")
	}
	switch cfg.Provider {
	case "chromem", "":
		return NewChromemProvider(cfg)
	case "qdrant":
		return NewQdrantProvider(cfg)
	case "pinecone":
		return NewPineconeProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s (supported: chromem, qdrant, pinecone)", cfg.Provider)
	}
}
