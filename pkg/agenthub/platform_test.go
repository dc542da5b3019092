package agenthub

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agenthub/agenthub/pkg/checkpoint"
	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/databases"
	"github.com/agenthub/agenthub/pkg/llms"
	"github.com/agenthub/agenthub/pkg/memory"
	"github.com/agenthub/agenthub/pkg/rag"
	"github.com/agenthub/agenthub/pkg/ratelimit"
)

type fixedSupervisor struct {
	answer string
}

func (p *fixedSupervisor) Generate(ctx context.Context, messages []llms.Message) (*llms.Response, error) {
	return &llms.Response{Content: p.answer, Model: "supervisor"}, nil
}

func (p *fixedSupervisor) ModelName() string { return "supervisor" }
func (p *fixedSupervisor) Close() error      { return nil }

type fixedEmbedder struct{}

func (e *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, "return") {
		return []float32{1, 0, 0}, nil
	}
	return []float32{0, 0, 1}, nil
}

func (e *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *fixedEmbedder) Dimension() int    { return 3 }
func (e *fixedEmbedder) ModelName() string { return "fixed" }
func (e *fixedEmbedder) Close() error      { return nil }

// newAgentModelServer serves the OpenAI chat completions shape, answering
// each call with the next scripted content.
func newAgentModelServer(t *testing.T, answers ...string) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	calls := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		idx := calls
		calls++
		mu.Unlock()
		if idx >= len(answers) {
			idx = len(answers) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-test",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": answers[idx]}, "finish_reason": "stop"},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
		})
	}))
}

func testCatalog(modelBaseURL string) *config.Config {
	return &config.Config{
		Tenants: []config.Tenant{
			{ID: "acme", Name: "Acme", Status: config.TenantActive},
		},
		Models: []config.ModelConfig{
			{ID: "m1", Provider: "openai", Model: "gpt-test", BaseURL: modelBaseURL, Active: true},
		},
		Bindings: []config.TenantModelBinding{
			{TenantID: "acme", ModelID: "m1", APIKey: "test-key", Active: true},
		},
		Tools: []config.ToolSpec{
			{
				ID: "t1", Name: "search_docs", Kind: config.ToolDocumentSearch, Active: true,
				Config: map[string]any{"top_k": 2},
				InputSchema: config.InputSchema{
					Parameters: []config.Parameter{{Name: "query", Type: "string"}},
					Required:   []string{"query"},
				},
			},
		},
		Agents: []config.AgentSpec{
			{
				ID: "a1", Name: "support", Description: "customer support and policies", Active: true,
				PromptTemplate: "You answer from the knowledge base.\n{context}",
				Tools:          []config.ToolBinding{{Tool: "search_docs", Priority: 1}},
			},
		},
		AgentPermissions: []config.AgentPermission{
			{TenantID: "acme", Agent: "support", Enabled: true},
		},
		ToolPermissions: []config.ToolPermission{
			{TenantID: "acme", Tool: "search_docs", Enabled: true},
		},
	}
}

func newTestPlatform(t *testing.T, cfg *config.Config, supervisorAnswer string) *Platform {
	t.Helper()

	memDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	memDB.SetMaxOpenConns(1)
	t.Cleanup(func() { memDB.Close() })
	memStore, err := memory.NewSQLStoreFromDB(memDB, "sqlite")
	if err != nil {
		t.Fatal(err)
	}

	cpDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	cpDB.SetMaxOpenConns(1)
	t.Cleanup(func() { cpDB.Close() })
	cpStore, err := checkpoint.NewSQLStoreFromDB(cpDB, "sqlite")
	if err != nil {
		t.Fatal(err)
	}

	vectorStore, err := databases.NewChromemProvider(&config.VectorStoreConfig{Provider: "chromem"})
	if err != nil {
		t.Fatal(err)
	}

	platform, err := New(cfg,
		WithSupervisor(&fixedSupervisor{answer: supervisorAnswer}),
		WithMemoryStore(memStore),
		WithCheckpointStore(cpStore),
		WithVectorStore(vectorStore),
		WithEmbedder(&fixedEmbedder{}),
		WithCredentials(config.StaticCredentialProvider("test-key")),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return platform
}

func TestPlatform_RouteAndExecuteFullTurn(t *testing.T) {
	server := newAgentModelServer(t,
		`{"intent": "policy_question", "entities": {"query": "return policy"}}`,
		"Returns are accepted within 30 days.",
	)
	defer server.Close()

	platform := newTestPlatform(t, testCatalog(server.URL), "support")
	ctx := context.Background()

	if _, err := platform.Ingest(ctx, "acme",
		&rag.TextSource{SourceName: "policies", Content: "All returns are accepted within 30 days of delivery."},
		nil); err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}

	result, err := platform.RouteAndExecute(ctx, Request{
		TenantID: "acme", UserID: "u1", Message: "what is your return policy?",
	})
	if err != nil {
		t.Fatalf("RouteAndExecute() error: %v", err)
	}

	if result.Status != "ok" {
		t.Errorf("status = %q, metadata = %+v", result.Status, result.Metadata)
	}
	if result.Agent != "support" || result.Intent != "policy_question" {
		t.Errorf("result = %+v", result)
	}
	if result.Response != "Returns are accepted within 30 days." {
		t.Errorf("response = %q", result.Response)
	}
	if len(result.Metadata.ToolCalls) != 1 || result.Metadata.ToolCalls[0].Tool != "search_docs" {
		t.Errorf("tool calls = %+v", result.Metadata.ToolCalls)
	}
	if result.Metadata.ToolCalls[0].Error != "" {
		t.Errorf("tool error = %q", result.Metadata.ToolCalls[0].Error)
	}
}

func TestPlatform_RegistriesCacheProvidersAndAdapters(t *testing.T) {
	server := newAgentModelServer(t,
		`{"intent": "policy_question", "entities": {"query": "return policy"}}`,
		"Returns are accepted within 30 days.",
		`{"intent": "policy_question", "entities": {"query": "return policy"}}`,
		"Returns are accepted within 30 days.",
	)
	defer server.Close()

	platform := newTestPlatform(t, testCatalog(server.URL), "support")
	ctx := context.Background()

	// Catalog tools are registered at construction.
	if _, err := platform.toolRegistry.GetAdapter("search_docs"); err != nil {
		t.Fatalf("GetAdapter(search_docs) error: %v", err)
	}

	if _, err := platform.RouteAndExecute(ctx, Request{
		TenantID: "acme", UserID: "u1", Message: "what is your return policy?",
	}); err != nil {
		t.Fatalf("RouteAndExecute() error: %v", err)
	}
	first, err := platform.llmRegistry.GetProvider("acme/m1")
	if err != nil {
		t.Fatalf("GetProvider(acme/m1) error: %v", err)
	}

	if _, err := platform.RouteAndExecute(ctx, Request{
		TenantID: "acme", UserID: "u1", Message: "what is your return policy?",
	}); err != nil {
		t.Fatalf("RouteAndExecute() error: %v", err)
	}
	second, err := platform.llmRegistry.GetProvider("acme/m1")
	if err != nil {
		t.Fatalf("GetProvider(acme/m1) error: %v", err)
	}
	if first != second {
		t.Error("second turn built a new provider instead of reusing the registered one")
	}

	// Supervisor and the tenant's model client, nothing else.
	if names := platform.llmRegistry.Names(); len(names) != 2 {
		t.Errorf("registered providers = %v, want supervisor and acme/m1", names)
	}
}

func TestPlatform_BindingRateLimitEnforced(t *testing.T) {
	server := newAgentModelServer(t,
		`{"intent": "policy_question", "entities": {"query": "return policy"}}`,
		"never reached",
	)
	defer server.Close()

	cfg := testCatalog(server.URL)
	cfg.Bindings[0].RateLimitRPM = 1

	platform := newTestPlatform(t, cfg, "support")

	// Extraction consumes the single allowed request; response assembly
	// is rejected and the turn fails closed.
	_, err := platform.RouteAndExecute(context.Background(), Request{
		TenantID: "acme", UserID: "u1", Message: "what is your return policy?",
	})
	if !ratelimit.IsLimitExceeded(err) {
		t.Fatalf("RouteAndExecute() error = %v, want rate limit exceeded", err)
	}
}

func TestPlatform_MultiIntentReturnsCannedResponse(t *testing.T) {
	platform := newTestPlatform(t, testCatalog("http://example.invalid"), "MULTI_INTENT")

	result, err := platform.RouteAndExecute(context.Background(), Request{
		TenantID: "acme", UserID: "u1", Message: "track my order and also update my billing address",
	})
	if err != nil {
		t.Fatalf("RouteAndExecute() error: %v", err)
	}
	if result.Status != StatusMultiIntent {
		t.Errorf("status = %q", result.Status)
	}
	if result.Response != multiIntentResponse {
		t.Errorf("response = %q", result.Response)
	}
	if len(result.Metadata.ToolCalls) != 0 {
		t.Errorf("tool calls = %+v, want none", result.Metadata.ToolCalls)
	}
}

func TestPlatform_UnclearReturnsCannedResponse(t *testing.T) {
	platform := newTestPlatform(t, testCatalog("http://example.invalid"), "UNCLEAR")

	result, err := platform.RouteAndExecute(context.Background(), Request{
		TenantID: "acme", UserID: "u1", Message: "flurble",
	})
	if err != nil {
		t.Fatalf("RouteAndExecute() error: %v", err)
	}
	if result.Status != StatusUnclear || result.Response != unclearResponse {
		t.Errorf("result = %+v", result)
	}
}

func TestPlatform_UnknownTenantRejected(t *testing.T) {
	platform := newTestPlatform(t, testCatalog("http://example.invalid"), "support")

	_, err := platform.RouteAndExecute(context.Background(), Request{
		TenantID: "nobody", UserID: "u1", Message: "hello",
	})
	if !config.IsNotFound(err) {
		t.Errorf("error = %v, want NotFoundError", err)
	}

	if _, err := platform.Query(context.Background(), "nobody", "anything", 3); !config.IsNotFound(err) {
		t.Errorf("Query error = %v, want NotFoundError", err)
	}
}

func TestPlatform_SuspendedTenantLooksMissing(t *testing.T) {
	cfg := testCatalog("http://example.invalid")
	cfg.Tenants = append(cfg.Tenants, config.Tenant{ID: "frozen", Status: config.TenantSuspended})
	platform := newTestPlatform(t, cfg, "support")

	_, err := platform.RouteAndExecute(context.Background(), Request{
		TenantID: "frozen", UserID: "u1", Message: "hello",
	})
	if !config.IsNotFound(err) {
		t.Errorf("error = %v, want NotFoundError for suspended tenant", err)
	}
}

func TestPlatform_QueryIsTenantScoped(t *testing.T) {
	cfg := testCatalog("http://example.invalid")
	cfg.Tenants = append(cfg.Tenants, config.Tenant{ID: "globex", Status: config.TenantActive})
	platform := newTestPlatform(t, cfg, "support")
	ctx := context.Background()

	if _, err := platform.Ingest(ctx, "acme",
		&rag.TextSource{SourceName: "policies", Content: "acme return policy text"}, nil); err != nil {
		t.Fatal(err)
	}

	matches, err := platform.Query(ctx, "globex", "return policy", 1)
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("globex sees %d of acme's chunks", len(matches))
	}

	count, err := platform.Stats(ctx, "acme")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Stats() = %d, want 1", count)
	}
}
