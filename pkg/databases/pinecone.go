package databases

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/agenthub/agenthub/pkg/config"
)

// PineconeProvider speaks the Pinecone vector API. Collections map to
// Pinecone namespaces within the configured index.
type PineconeProvider struct {
	client *pinecone.Client
	cfg    *config.VectorStoreConfig
}

var _ Provider = (*PineconeProvider)(nil)

func NewPineconeProvider(cfg *config.VectorStoreConfig) (*PineconeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for pinecone")
	}
	if cfg.IndexHost == "" {
		return nil, fmt.Errorf("index host is required for pinecone")
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}
	return &PineconeProvider{client: client, cfg: cfg}, nil
}

func (p *PineconeProvider) indexConnection(collection string) (*pinecone.IndexConnection, error) {
	conn, err := p.client.Index(pinecone.NewIndexConnParams{
		Host:      p.cfg.IndexHost,
		Namespace: collection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pinecone index: %w", err)
	}
	return conn, nil
}

func (p *PineconeProvider) Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error {
	conn, err := p.indexConnection(collection)
	if err != nil {
		return err
	}
	defer conn.Close()

	var meta *pinecone.Metadata
	if len(metadata) > 0 {
		meta, err = structpb.NewStruct(metadata)
		if err != nil {
			return fmt.Errorf("failed to convert metadata: %w", err)
		}
	}

	_, err = conn.UpsertVectors(ctx, []*pinecone.Vector{{
		Id:       id,
		Values:   vector,
		Metadata: meta,
	}})
	if err != nil {
		return fmt.Errorf("failed to upsert vector: %w", err)
	}
	return nil
}

func (p *PineconeProvider) Search(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]SearchResult, error) {
	if err := requireTenantFilter(collection, "search", filter); err != nil {
		return nil, err
	}

	conn, err := p.indexConnection(collection)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	metadataFilter, err := structpb.NewStruct(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to convert filter: %w", err)
	}

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		MetadataFilter:  metadataFilter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query pinecone: %w", err)
	}

	results := make([]SearchResult, 0, len(resp.Matches))
	for _, match := range resp.Matches {
		if match.Vector == nil {
			continue
		}
		metadata := make(map[string]any)
		if match.Vector.Metadata != nil {
			metadata = match.Vector.Metadata.AsMap()
		}
		content := ""
		if c, ok := metadata["content"].(string); ok {
			content = c
		}
		results = append(results, SearchResult{
			ID:       match.Vector.Id,
			Score:    match.Score,
			Content:  content,
			Metadata: metadata,
		})
	}
	return results, nil
}

// Count is not supported: Pinecone exposes per-namespace totals only, not
// metadata-filtered counts.
func (p *PineconeProvider) Count(ctx context.Context, collection string, filter map[string]any) (int, error) {
	if err := requireTenantFilter(collection, "count", filter); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("per-tenant count is not supported by the pinecone provider")
}

func (p *PineconeProvider) DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error {
	if err := requireTenantFilter(collection, "delete", filter); err != nil {
		return err
	}

	conn, err := p.indexConnection(collection)
	if err != nil {
		return err
	}
	defer conn.Close()

	metadataFilter, err := structpb.NewStruct(filter)
	if err != nil {
		return fmt.Errorf("failed to convert filter: %w", err)
	}
	if err := conn.DeleteVectorsByFilter(ctx, metadataFilter); err != nil {
		return fmt.Errorf("failed to delete by filter: %w", err)
	}
	return nil
}

// EnsureCollection is a no-op. Pinecone namespaces are created on first
// upsert and the index itself is provisioned out of band.
func (p *PineconeProvider) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	return nil
}

func (p *PineconeProvider) DeleteCollection(ctx context.Context, collection string) error {
	conn, err := p.indexConnection(collection)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.DeleteAllVectorsInNamespace(ctx); err != nil {
		return fmt.Errorf("failed to clear namespace %s: %w", collection, err)
	}
	return nil
}

func (p *PineconeProvider) Close() error {
	return nil
}
