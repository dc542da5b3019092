package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/databases"
	"github.com/agenthub/agenthub/pkg/embedders"
	"github.com/agenthub/agenthub/pkg/logger"
	"github.com/agenthub/agenthub/pkg/observability"
)

// DefaultCollection is the single shared collection; tenant isolation is
// enforced through metadata filtering, not separate collections.
const DefaultCollection = "knowledge_documents"

// Match is a retrieval hit. Distance is cosine distance (1 - similarity),
// lower is closer.
type Match struct {
	ID       string
	Content  string
	Distance float32
	Metadata map[string]any
}

// IngestResult summarizes a completed ingestion.
type IngestResult struct {
	ChunkCount int
	ChunkIDs   []string
}

// Engine chunks, embeds and stores documents and answers similarity
// queries over them.
type Engine struct {
	db         databases.Provider
	embedder   embedders.Embedder
	chunker    *RecursiveChunker
	collection string
}

func NewEngine(db databases.Provider, embedder embedders.Embedder, chunking config.ChunkingConfig, collection string) (*Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &Engine{
		db:         db,
		embedder:   embedder,
		chunker:    NewRecursiveChunker(chunking),
		collection: collection,
	}, nil
}

// Ingest loads the source, chunks it, embeds the chunks in batch and
// upserts them tagged with the tenant. The first persistence failure
// aborts the remainder and surfaces the number already written.
func (e *Engine) Ingest(ctx context.Context, tenantID string, source Source, extra map[string]any) (*IngestResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}

	tracer := observability.GetTracer("rag")
	ctx, span := tracer.Start(ctx, observability.SpanRAGIngest)
	defer span.End()
	span.SetAttributes(attribute.String(observability.AttrTenantID, tenantID))

	log := logger.GetLogger()

	docs, err := source.Load(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &IngestionError{TenantID: tenantID, Source: source.Name(), Err: err}
	}

	type pendingChunk struct {
		content  string
		metadata map[string]any
	}
	var pending []pendingChunk
	ingestedAt := time.Now().UTC().Format(time.RFC3339)

	for _, doc := range docs {
		chunks := e.chunker.Chunk(doc.Content)
		for _, chunk := range chunks {
			metadata := map[string]any{
				databases.TenantIDField: tenantID,
				"source":                source.Name(),
				"ingested_at":           ingestedAt,
				"content":               chunk.Content,
			}
			for k, v := range doc.Metadata {
				if k != "content" {
					metadata[k] = v
				}
			}
			for k, v := range extra {
				if k != databases.TenantIDField && k != "content" {
					metadata[k] = v
				}
			}
			pending = append(pending, pendingChunk{content: chunk.Content, metadata: metadata})
		}
	}

	if len(pending) == 0 {
		return &IngestResult{}, nil
	}

	// Chunk positions are numbered across the whole batch, not per
	// document, so multi-document sources (PDF pages, XLSX sheets) get
	// unique indexes and one shared total.
	for i := range pending {
		pending[i].metadata["chunk_index"] = i
		pending[i].metadata["chunk_total"] = len(pending)
	}

	texts := make([]string, len(pending))
	for i, p := range pending {
		texts[i] = p.content
	}
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &IngestionError{TenantID: tenantID, Source: source.Name(), Err: err}
	}

	result := &IngestResult{ChunkIDs: make([]string, 0, len(pending))}
	for i, p := range pending {
		id := uuid.NewString()
		if err := e.db.Upsert(ctx, e.collection, id, vectors[i], p.metadata); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, &IngestionError{
				TenantID:  tenantID,
				Source:    source.Name(),
				Persisted: result.ChunkCount,
				Err:       err,
			}
		}
		result.ChunkIDs = append(result.ChunkIDs, id)
		result.ChunkCount++
	}

	span.SetStatus(codes.Ok, "")
	observability.GetGlobalMetrics().RecordRAGIngest(ctx, tenantID, result.ChunkCount)
	log.Info("Ingested source",
		"tenant", tenantID, "source", source.Name(), "chunks", result.ChunkCount)
	return result, nil
}

// Query embeds the text and returns the closest chunks of the tenant in
// ascending cosine distance. An empty result is not an error.
func (e *Engine) Query(ctx context.Context, tenantID, text string, topK int) ([]Match, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}
	if topK <= 0 {
		topK = 5
	}

	tracer := observability.GetTracer("rag")
	ctx, span := tracer.Start(ctx, observability.SpanRAGSearch)
	defer span.End()
	span.SetAttributes(attribute.String(observability.AttrTenantID, tenantID))

	start := time.Now()
	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &SearchError{TenantID: tenantID, Err: err}
	}

	results, err := e.db.Search(ctx, e.collection, vector, topK,
		map[string]any{databases.TenantIDField: tenantID})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &SearchError{TenantID: tenantID, Err: err}
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			ID:       r.ID,
			Content:  r.Content,
			Distance: 1 - r.Score,
			Metadata: r.Metadata,
		})
	}

	span.SetStatus(codes.Ok, "")
	observability.GetGlobalMetrics().RecordRAGSearch(ctx, tenantID, time.Since(start))
	return matches, nil
}

// DeleteSource removes every chunk the tenant ingested from the named
// source. Re-ingestion does not replace old chunks, so callers use this
// to implement their own refresh policy.
func (e *Engine) DeleteSource(ctx context.Context, tenantID, source string) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}
	if source == "" {
		return fmt.Errorf("source is required")
	}
	return e.db.DeleteByFilter(ctx, e.collection, map[string]any{
		databases.TenantIDField: tenantID,
		"source":                source,
	})
}

// Stats returns the tenant's stored chunk count.
func (e *Engine) Stats(ctx context.Context, tenantID string) (int, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenantID is required")
	}
	return e.db.Count(ctx, e.collection, map[string]any{databases.TenantIDField: tenantID})
}
