// Package agenthub assembles the platform: catalog resolution, intent
// routing, agent execution, conversation memory, and retrieval.
package agenthub

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthub/agenthub/pkg/agent"
	"github.com/agenthub/agenthub/pkg/checkpoint"
	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/databases"
	"github.com/agenthub/agenthub/pkg/embedders"
	"github.com/agenthub/agenthub/pkg/llms"
	"github.com/agenthub/agenthub/pkg/logger"
	"github.com/agenthub/agenthub/pkg/memory"
	"github.com/agenthub/agenthub/pkg/rag"
	"github.com/agenthub/agenthub/pkg/ratelimit"
	"github.com/agenthub/agenthub/pkg/router"
	"github.com/agenthub/agenthub/pkg/tools"
)

const (
	StatusMultiIntent = "multi_intent"
	StatusUnclear     = "unclear"

	multiIntentResponse = "Your message seems to contain several distinct requests. Please send them one at a time so each can be handled by the right specialist."
	unclearResponse     = "I could not match your request to any available service. Could you rephrase it?"
)

// Request is one inbound user message.
type Request struct {
	TenantID string
	UserID   string
	Message  string

	// BearerToken is forwarded to HTTP tools on the user's behalf.
	BearerToken string
}

// Platform owns the process-wide components and serves turns for any
// tenant. Tenant-specific state (resolver, router, executor) is assembled
// per request so catalog changes apply on the next turn.
type Platform struct {
	cfg         *config.Config
	store       config.Store
	credentials config.CredentialProvider

	supervisor  llms.Provider
	memory      memory.Store
	checkpoints checkpoint.Store
	vectorStore databases.Provider
	embedder    embedders.Embedder
	engine      *rag.Engine
	limiter     *ratelimit.Limiter

	llmRegistry      *llms.ProviderRegistry
	dbRegistry       *databases.DatabaseRegistry
	embedderRegistry *embedders.EmbedderRegistry
	toolRegistry     *tools.AdapterRegistry
}

// defaultComponent is the registry name for the single store and embedder
// the platform section configures.
const defaultComponent = "default"

// Option overrides a default component, mainly for tests and embedders
// of the platform as a library.
type Option func(*Platform)

func WithStore(store config.Store) Option {
	return func(p *Platform) { p.store = store }
}

func WithCredentials(credentials config.CredentialProvider) Option {
	return func(p *Platform) { p.credentials = credentials }
}

func WithSupervisor(provider llms.Provider) Option {
	return func(p *Platform) { p.supervisor = provider }
}

func WithMemoryStore(store memory.Store) Option {
	return func(p *Platform) { p.memory = store }
}

func WithCheckpointStore(store checkpoint.Store) Option {
	return func(p *Platform) { p.checkpoints = store }
}

func WithVectorStore(provider databases.Provider) Option {
	return func(p *Platform) { p.vectorStore = provider }
}

func WithEmbedder(embedder embedders.Embedder) Option {
	return func(p *Platform) { p.embedder = embedder }
}

// New assembles a platform from a validated config. Components not
// overridden by options are built from the platform section.
func New(cfg *config.Config, opts ...Option) (*Platform, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	p := &Platform{
		cfg:              cfg,
		llmRegistry:      llms.NewProviderRegistry(),
		dbRegistry:       databases.NewDatabaseRegistry(),
		embedderRegistry: embedders.NewEmbedderRegistry(),
		toolRegistry:     tools.NewAdapterRegistry(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.store == nil {
		p.store = config.NewFileStore(cfg)
	}
	if p.credentials == nil {
		p.credentials = config.EnvCredentialProvider{Prefix: "AGENTHUB_API_KEY"}
	}

	var err error
	if p.supervisor == nil {
		supervisorCfg := cfg.Platform.Supervisor
		if p.supervisor, err = p.llmRegistry.CreateProviderFromConfig("supervisor", &supervisorCfg); err != nil {
			return nil, fmt.Errorf("supervisor: %w", err)
		}
	} else if err = p.llmRegistry.RegisterProvider("supervisor", p.supervisor); err != nil {
		return nil, fmt.Errorf("supervisor: %w", err)
	}
	if p.memory == nil {
		if p.memory, err = memory.NewSQLStore(&cfg.Platform.Database); err != nil {
			return nil, fmt.Errorf("memory store: %w", err)
		}
	}
	if p.checkpoints == nil {
		if p.checkpoints, err = checkpoint.NewSQLStore(&cfg.Platform.Database); err != nil {
			return nil, fmt.Errorf("checkpoint store: %w", err)
		}
	}
	if p.vectorStore == nil {
		if p.vectorStore, err = p.dbRegistry.CreateDatabaseFromConfig(defaultComponent, &cfg.Platform.VectorStore); err != nil {
			return nil, fmt.Errorf("vector store: %w", err)
		}
	} else if err = p.dbRegistry.RegisterDatabase(defaultComponent, p.vectorStore); err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	if p.embedder == nil {
		embedderCfg := cfg.Platform.Embedder
		if p.embedder, err = p.embedderRegistry.CreateEmbedderFromConfig(defaultComponent, &embedderCfg); err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
	} else if err = p.embedderRegistry.RegisterEmbedder(defaultComponent, p.embedder); err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	p.engine, err = rag.NewEngine(p.vectorStore, p.embedder, cfg.Platform.Chunking, cfg.Platform.VectorStore.Collection)
	if err != nil {
		return nil, fmt.Errorf("retrieval engine: %w", err)
	}

	// Catalog tools are shared across tenants, so their adapters are
	// built once up front. Tools added by a catalog reload are picked up
	// lazily in executorFor.
	for _, spec := range cfg.Tools {
		if _, err := p.toolRegistry.CreateAdapterFromSpec(spec, p.engine); err != nil {
			return nil, fmt.Errorf("tool %s: %w", spec.Name, err)
		}
	}

	if p.limiter, err = ratelimit.New(ratelimit.NewMemoryStore()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	return p, nil
}

// RouteAndExecute classifies the message onto one of the tenant's enabled
// agents and runs that agent's turn. Multi-intent and unclear messages
// return canned structured responses without invoking an agent.
func (p *Platform) RouteAndExecute(ctx context.Context, req Request) (*agent.Result, error) {
	if req.TenantID == "" || req.UserID == "" {
		return nil, fmt.Errorf("tenant id and user id are required")
	}

	resolver, err := config.NewResolver(ctx, p.store, p.credentials, req.TenantID)
	if err != nil {
		return nil, err
	}

	r, err := router.New(p.supervisor, resolver.EnabledAgents())
	if err != nil {
		return nil, err
	}
	decision, err := r.Route(ctx, req.Message)
	if err != nil {
		return nil, err
	}

	session, err := p.memory.GetOrCreateSession(ctx, req.TenantID, req.UserID, p.cfg.Platform.SessionWindow)
	if err != nil {
		return nil, err
	}

	switch decision.Kind {
	case router.MultiIntent:
		return p.cannedTurn(ctx, session.ID, req.Message, StatusMultiIntent, multiIntentResponse)
	case router.Unclear:
		return p.cannedTurn(ctx, session.ID, req.Message, StatusUnclear, unclearResponse)
	}

	executor, err := p.executorFor(ctx, resolver, decision.Agent)
	if err != nil {
		return nil, err
	}

	return executor.Invoke(ctx, agent.Input{
		SessionID:   session.ID,
		ThreadID:    session.ThreadID,
		Message:     req.Message,
		BearerToken: req.BearerToken,
	})
}

func (p *Platform) executorFor(ctx context.Context, resolver *config.Resolver, agentName string) (*agent.Executor, error) {
	spec, err := resolver.Agent(ctx, agentName)
	if err != nil {
		return nil, err
	}

	model, binding, err := resolver.AgentModel(ctx, spec)
	if err != nil {
		return nil, err
	}
	provider, err := p.modelProvider(resolver.Tenant().ID, model, binding)
	if err != nil {
		return nil, err
	}
	provider = ratelimit.WrapProvider(provider, p.limiter, resolver.Tenant().ID, ratelimit.FromBinding(binding))

	toolSpecs, err := resolver.AgentTools(ctx, spec.Name)
	if err != nil {
		return nil, err
	}
	bound := make([]agent.BoundTool, 0, len(toolSpecs))
	for i, toolSpec := range toolSpecs {
		adapter, err := p.toolAdapter(toolSpec)
		if err != nil {
			return nil, err
		}
		bound = append(bound, agent.BoundTool{Spec: toolSpec, Adapter: adapter, Priority: i})
	}

	return agent.NewExecutor(agent.ExecutorConfig{
		TenantID:    resolver.Tenant().ID,
		Agent:       spec,
		Provider:    provider,
		Memory:      p.memory,
		Checkpoints: p.checkpoints,
		Tools:       bound,
		TokenBudget: model.ContextWindow / 2,
	})
}

// modelProvider returns the tenant's client for a model, building and
// registering it on first use so later turns reuse the same connection.
func (p *Platform) modelProvider(tenantID string, model config.ModelConfig, binding config.TenantModelBinding) (llms.Provider, error) {
	key := tenantID + "/" + model.ID
	if provider, err := p.llmRegistry.GetProvider(key); err == nil {
		return provider, nil
	}

	provider, err := llms.NewProvider(&config.LLMProviderConfig{
		Provider: model.Provider,
		Model:    model.Model,
		BaseURL:  model.BaseURL,
		APIKey:   binding.APIKey,
	})
	if err != nil {
		return nil, err
	}
	if err := p.llmRegistry.RegisterProvider(key, provider); err != nil {
		// A concurrent turn registered first; keep that instance.
		if cached, getErr := p.llmRegistry.GetProvider(key); getErr == nil {
			_ = provider.Close()
			return cached, nil
		}
		return nil, err
	}
	return provider, nil
}

// toolAdapter resolves a tool's adapter, building it on first use when
// the spec arrived through a catalog reload.
func (p *Platform) toolAdapter(spec config.ToolSpec) (tools.Adapter, error) {
	if adapter, err := p.toolRegistry.GetAdapter(spec.Name); err == nil {
		return adapter, nil
	}
	adapter, err := p.toolRegistry.CreateAdapterFromSpec(spec, p.engine)
	if err != nil {
		if cached, getErr := p.toolRegistry.GetAdapter(spec.Name); getErr == nil {
			return cached, nil
		}
		return nil, err
	}
	return adapter, nil
}

// cannedTurn persists the exchange so the conversation keeps its shape
// even when no agent ran.
func (p *Platform) cannedTurn(ctx context.Context, sessionID, message, status, response string) (*agent.Result, error) {
	if err := p.memory.AppendMessage(ctx, sessionID, memory.Message{
		Role:    memory.RoleUser,
		Content: message,
	}); err != nil {
		return nil, err
	}
	if err := p.memory.AppendMessage(ctx, sessionID, memory.Message{
		Role:     memory.RoleAssistant,
		Content:  response,
		Metadata: map[string]any{"routing": status},
	}); err != nil {
		return nil, err
	}

	return &agent.Result{
		Status:   status,
		Response: response,
		Metadata: agent.Metadata{
			ToolCalls:         []agent.ToolCallRecord{},
			ExtractedEntities: map[string]string{},
		},
	}, nil
}

// Ingest loads a document source into the tenant's knowledge base.
func (p *Platform) Ingest(ctx context.Context, tenantID string, source rag.Source, tags map[string]any) (*rag.IngestResult, error) {
	if _, err := config.NewResolver(ctx, p.store, p.credentials, tenantID); err != nil {
		return nil, err
	}
	return p.engine.Ingest(ctx, tenantID, source, tags)
}

// Query searches the tenant's knowledge base.
func (p *Platform) Query(ctx context.Context, tenantID, text string, topK int) ([]rag.Match, error) {
	if _, err := config.NewResolver(ctx, p.store, p.credentials, tenantID); err != nil {
		return nil, err
	}
	return p.engine.Query(ctx, tenantID, text, topK)
}

// DeleteSource removes every chunk the tenant ingested from a source.
func (p *Platform) DeleteSource(ctx context.Context, tenantID, source string) error {
	if _, err := config.NewResolver(ctx, p.store, p.credentials, tenantID); err != nil {
		return err
	}
	return p.engine.DeleteSource(ctx, tenantID, source)
}

// Stats returns the tenant's stored chunk count.
func (p *Platform) Stats(ctx context.Context, tenantID string) (int, error) {
	if _, err := config.NewResolver(ctx, p.store, p.credentials, tenantID); err != nil {
		return 0, err
	}
	return p.engine.Stats(ctx, tenantID)
}

// Close releases every owned component. Errors are logged, not returned;
// shutdown proceeds through all components.
func (p *Platform) Close() {
	log := logger.GetLogger()
	// The provider registry holds the supervisor plus every per-model
	// client built during turns.
	for _, name := range p.llmRegistry.Names() {
		provider, ok := p.llmRegistry.Get(name)
		if !ok {
			continue
		}
		if err := provider.Close(); err != nil {
			log.Warn("Failed to close LLM provider", "provider", name, "error", err)
		}
	}
	for name, closer := range map[string]func() error{
		"memory":       p.memory.Close,
		"checkpoints":  p.checkpoints.Close,
		"vector store": p.vectorStore.Close,
		"embedder":     p.embedder.Close,
	} {
		if err := closer(); err != nil {
			log.Warn("Failed to close component", "component", name, "error", err)
		}
	}
}

// SessionWindow is exported for surfaces that display session reuse
// behavior.
func (p *Platform) SessionWindow() time.Duration {
	return p.cfg.Platform.SessionWindow
}
