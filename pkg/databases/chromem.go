package databases

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/agenthub/agenthub/pkg/config"
)

// ChromemProvider is an embedded vector store backed by chromem-go. With a
// configured path it persists to disk, otherwise it is in-memory only.
type ChromemProvider struct {
	db  *chromem.DB
	cfg *config.VectorStoreConfig

	// mu guards the maps below and is held across every write to the
	// underlying store, so count adjustments stay attributed to the
	// mutation that caused them.
	mu          sync.Mutex
	collections map[string]*chromem.Collection
	// Per-tenant document counts, keyed collection then tenant. chromem
	// has no filtered count API, so counts are rebuilt from the store at
	// open and adjusted on every write.
	counts map[string]map[string]int
}

var _ Provider = (*ChromemProvider)(nil)

func NewChromemProvider(cfg *config.VectorStoreConfig) (*ChromemProvider, error) {
	var db *chromem.DB
	var err error
	if cfg.Path != "" {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem db at %s: %w", cfg.Path, err)
		}
	} else {
		db = chromem.NewDB()
	}
	p := &ChromemProvider{
		db:          db,
		cfg:         cfg,
		collections: make(map[string]*chromem.Collection),
		counts:      make(map[string]map[string]int),
	}
	if err := p.seedCounts(); err != nil {
		return nil, err
	}
	return p, nil
}

// seedCounts rebuilds per-tenant counts from documents already in the
// store, so a reopened persistent database reports the same numbers as
// the process that wrote it. chromem has no document enumeration API;
// the export snapshot is the supported way to read everything back.
func (p *ChromemProvider) seedCounts() error {
	if len(p.db.ListCollections()) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := p.db.ExportToWriter(&buf, false, ""); err != nil {
		return fmt.Errorf("failed to snapshot chromem db: %w", err)
	}
	var snapshot struct {
		Collections map[string]*struct {
			Documents map[string]*chromem.Document
		}
	}
	if err := gob.NewDecoder(&buf).Decode(&snapshot); err != nil {
		return fmt.Errorf("failed to decode chromem snapshot: %w", err)
	}

	for name, col := range snapshot.Collections {
		for _, doc := range col.Documents {
			p.bump(name, doc.Metadata[TenantIDField], 1)
		}
	}
	return nil
}

func (p *ChromemProvider) collection(name string) (*chromem.Collection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.collectionLocked(name)
}

func (p *ChromemProvider) collectionLocked(name string) (*chromem.Collection, error) {
	if c, ok := p.collections[name]; ok {
		return c, nil
	}
	// Embeddings are always precomputed, so no embedding func is wired.
	c, err := p.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}
	p.collections[name] = c
	return c, nil
}

func (p *ChromemProvider) Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error {
	meta := make(map[string]string, len(metadata))
	content := ""
	for key, value := range metadata {
		if key == "content" {
			if s, ok := value.(string); ok {
				content = s
				continue
			}
		}
		meta[key] = fmt.Sprint(value)
	}

	doc := chromem.Document{
		ID:        id,
		Metadata:  meta,
		Embedding: vector,
		Content:   content,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	c, err := p.collectionLocked(collection)
	if err != nil {
		return err
	}
	// An upsert over an existing ID replaces the document, so the old
	// owner loses a count when the new owner gains one.
	prevTenant := ""
	if prev, err := c.GetByID(ctx, id); err == nil {
		prevTenant = prev.Metadata[TenantIDField]
	}
	if err := c.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", id, err)
	}
	p.bump(collection, prevTenant, -1)
	p.bump(collection, meta[TenantIDField], 1)
	return nil
}

// bump adjusts a tenant's count. Callers must hold p.mu (or, during
// construction, have exclusive access).
func (p *ChromemProvider) bump(collection, tenant string, delta int) {
	if tenant == "" || delta == 0 {
		return
	}
	if p.counts[collection] == nil {
		p.counts[collection] = make(map[string]int)
	}
	p.counts[collection][tenant] += delta
}

func (p *ChromemProvider) Search(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]SearchResult, error) {
	if err := requireTenantFilter(collection, "search", filter); err != nil {
		return nil, err
	}

	c, err := p.collection(collection)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults greater than the collection size.
	count := c.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	where := make(map[string]string, len(filter))
	for key, value := range filter {
		where[key] = fmt.Sprint(value)
	}

	matches, err := c.QueryEmbedding(ctx, vector, topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		metadata := make(map[string]any, len(m.Metadata))
		for key, value := range m.Metadata {
			metadata[key] = value
		}
		results = append(results, SearchResult{
			ID:       m.ID,
			Score:    m.Similarity,
			Content:  m.Content,
			Metadata: metadata,
		})
	}
	return results, nil
}

func (p *ChromemProvider) DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error {
	if err := requireTenantFilter(collection, "delete", filter); err != nil {
		return err
	}

	where := make(map[string]string, len(filter))
	for key, value := range filter {
		where[key] = fmt.Sprint(value)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	c, err := p.collectionLocked(collection)
	if err != nil {
		return err
	}
	before := c.Count()
	if err := c.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("failed to delete from collection %s: %w", collection, err)
	}
	// The filter always carries tenant_id, so every removed document
	// belonged to that tenant.
	if tenant, ok := filter[TenantIDField].(string); ok {
		p.bump(collection, tenant, c.Count()-before)
	}
	return nil
}

func (p *ChromemProvider) Count(ctx context.Context, collection string, filter map[string]any) (int, error) {
	if err := requireTenantFilter(collection, "count", filter); err != nil {
		return 0, err
	}
	tenant, _ := filter[TenantIDField].(string)

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[collection][tenant], nil
}

func (p *ChromemProvider) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	_, err := p.collection(collection)
	return err
}

func (p *ChromemProvider) DeleteCollection(ctx context.Context, collection string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.db.DeleteCollection(collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collection, err)
	}
	delete(p.collections, collection)
	delete(p.counts, collection)
	return nil
}

func (p *ChromemProvider) Close() error {
	return nil
}
