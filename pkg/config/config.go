package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/agenthub/agenthub/pkg/observability"
)

// DatabaseConfig configures the SQL database backing sessions, messages,
// and checkpoints.
type DatabaseConfig struct {
	// Driver is one of sqlite3, postgres, mysql.
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty" jsonschema:"enum=sqlite3,enum=postgres,enum=mysql,default=sqlite3"`
	DSN    string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// SetDefaults applies default values.
func (c *DatabaseConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite3"
	}
	if c.DSN == "" {
		c.DSN = "agenthub.db"
	}
}

// Validate checks the database configuration.
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "sqlite3", "postgres", "mysql":
		return nil
	}
	return fmt.Errorf("unsupported database driver %q", c.Driver)
}

// VectorStoreConfig configures the vector database used by retrieval.
type VectorStoreConfig struct {
	// Provider is one of chromem, qdrant, pinecone.
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty" jsonschema:"enum=chromem,enum=qdrant,enum=pinecone,default=chromem"`

	// Path is the persistence directory for chromem. Empty means in-memory.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// Host/Port locate a qdrant server.
	Host string `yaml:"host,omitempty" json:"host,omitempty"`
	Port int    `yaml:"port,omitempty" json:"port,omitempty"`

	// APIKey and IndexHost configure pinecone.
	APIKey    string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	IndexHost string `yaml:"index_host,omitempty" json:"index_host,omitempty"`

	// Collection is the single collection retrieval uses; tenant isolation
	// is a mandatory metadata filter, not separate collections.
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`
}

// SetDefaults applies default values.
func (c *VectorStoreConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "chromem"
	}
	if c.Collection == "" {
		c.Collection = "knowledge_documents"
	}
	if c.Provider == "qdrant" {
		if c.Host == "" {
			c.Host = "localhost"
		}
		if c.Port == 0 {
			c.Port = 6334
		}
	}
}

// Validate checks the vector store configuration.
func (c *VectorStoreConfig) Validate() error {
	switch c.Provider {
	case "chromem", "qdrant":
	case "pinecone":
		if c.APIKey == "" {
			return fmt.Errorf("pinecone requires api_key")
		}
	default:
		return fmt.Errorf("unsupported vector store provider %q", c.Provider)
	}
	return nil
}

// LLMProviderConfig configures one LLM endpoint. The supervisor router uses
// the platform-level instance; per-agent instances are assembled from the
// tenant's model binding at request time.
type LLMProviderConfig struct {
	// Provider is one of openai, ollama. "openai" covers every
	// OpenAI-compatible gateway, including OpenRouter.
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty" jsonschema:"enum=openai,enum=ollama,default=openai"`

	Model   string `yaml:"model,omitempty" json:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// APIKey supports ${VAR} expansion.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	Temperature *float64      `yaml:"temperature,omitempty" json:"temperature,omitempty" jsonschema:"minimum=0,maximum=2,default=0.7"`
	MaxTokens   int           `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" jsonschema:"minimum=1,default=4096"`
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// SetDefaults applies default values.
func (c *LLMProviderConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Model == "" {
		switch c.Provider {
		case "ollama":
			c.Model = "llama3.2"
		default:
			c.Model = "gpt-4o-mini"
		}
	}
	if c.BaseURL == "" {
		switch c.Provider {
		case "ollama":
			c.BaseURL = "http://localhost:11434"
		default:
			c.BaseURL = "https://api.openai.com/v1"
		}
	}
	if c.Temperature == nil {
		temp := 0.7
		c.Temperature = &temp
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
}

// Validate checks the LLM provider configuration.
func (c *LLMProviderConfig) Validate() error {
	switch c.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.Provider)
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", *c.Temperature)
	}
	return nil
}

// EmbedderProviderConfig configures the embedding endpoint shared by
// ingestion and query.
type EmbedderProviderConfig struct {
	// Provider is one of openai, ollama.
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty" jsonschema:"enum=openai,enum=ollama,default=openai"`

	Model   string `yaml:"model,omitempty" json:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	// Dimension of the embedding vectors. Must match the vector store.
	Dimension int `yaml:"dimension,omitempty" json:"dimension,omitempty" jsonschema:"minimum=1,default=1536"`
}

// SetDefaults applies default values.
func (c *EmbedderProviderConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Model == "" {
		switch c.Provider {
		case "ollama":
			c.Model = "nomic-embed-text"
		default:
			c.Model = "text-embedding-3-small"
		}
	}
	if c.BaseURL == "" {
		switch c.Provider {
		case "ollama":
			c.BaseURL = "http://localhost:11434"
		default:
			c.BaseURL = "https://api.openai.com/v1"
		}
	}
	if c.Dimension == 0 {
		c.Dimension = 1536
	}
}

// Validate checks the embedder configuration.
func (c *EmbedderProviderConfig) Validate() error {
	switch c.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unsupported embedder provider %q", c.Provider)
	}
	if c.Dimension < 1 {
		return fmt.Errorf("dimension must be positive, got %d", c.Dimension)
	}
	return nil
}

// ChunkingConfig controls document splitting during ingestion.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size,omitempty" json:"chunk_size,omitempty" jsonschema:"minimum=1,default=1000"`
	ChunkOverlap int `yaml:"chunk_overlap,omitempty" json:"chunk_overlap,omitempty" jsonschema:"minimum=0,default=200"`
}

// SetDefaults applies default values.
func (c *ChunkingConfig) SetDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 200
	}
}

// Validate checks the chunking configuration.
func (c *ChunkingConfig) Validate() error {
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// PlatformConfig holds process-level settings.
type PlatformConfig struct {
	LogLevel  string `yaml:"log_level,omitempty" json:"log_level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
	LogFormat string `yaml:"log_format,omitempty" json:"log_format,omitempty" jsonschema:"enum=simple,enum=verbose,default=simple"`

	Database    DatabaseConfig         `yaml:"database,omitempty" json:"database,omitempty"`
	VectorStore VectorStoreConfig      `yaml:"vector_store,omitempty" json:"vector_store,omitempty"`
	Embedder    EmbedderProviderConfig `yaml:"embedder,omitempty" json:"embedder,omitempty"`

	// Supervisor is the model the intent router classifies with.
	Supervisor LLMProviderConfig `yaml:"supervisor,omitempty" json:"supervisor,omitempty"`

	// SessionWindow is how long a session stays reusable after its last
	// message.
	SessionWindow time.Duration `yaml:"session_window,omitempty" json:"session_window,omitempty"`

	Chunking ChunkingConfig `yaml:"chunking,omitempty" json:"chunking,omitempty"`

	Observability observability.Config `yaml:"observability,omitempty" json:"observability,omitempty"`
}

// SetDefaults applies default values.
func (c *PlatformConfig) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "simple"
	}
	if c.SessionWindow == 0 {
		c.SessionWindow = 30 * time.Minute
	}
	c.Database.SetDefaults()
	c.VectorStore.SetDefaults()
	c.Embedder.SetDefaults()
	c.Supervisor.SetDefaults()
	c.Chunking.SetDefaults()
	c.Observability.SetDefaults()
}

// Validate checks the platform configuration.
func (c *PlatformConfig) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.VectorStore.Validate(); err != nil {
		return fmt.Errorf("vector_store: %w", err)
	}
	if err := c.Embedder.Validate(); err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	if err := c.Supervisor.Validate(); err != nil {
		return fmt.Errorf("supervisor: %w", err)
	}
	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}

// Config is the whole platform catalog plus process settings, as loaded from
// the YAML config file.
type Config struct {
	Platform PlatformConfig `yaml:"platform,omitempty" json:"platform,omitempty"`

	Tenants  []Tenant             `yaml:"tenants,omitempty" json:"tenants,omitempty"`
	Models   []ModelConfig        `yaml:"models,omitempty" json:"models,omitempty"`
	Bindings []TenantModelBinding `yaml:"bindings,omitempty" json:"bindings,omitempty"`
	Tools    []ToolSpec           `yaml:"tools,omitempty" json:"tools,omitempty"`
	Agents   []AgentSpec          `yaml:"agents,omitempty" json:"agents,omitempty"`

	AgentPermissions []AgentPermission `yaml:"agent_permissions,omitempty" json:"agent_permissions,omitempty"`
	ToolPermissions  []ToolPermission  `yaml:"tool_permissions,omitempty" json:"tool_permissions,omitempty"`
}

// SetDefaults applies default values throughout the catalog.
func (c *Config) SetDefaults() {
	c.Platform.SetDefaults()
	for i := range c.Tenants {
		c.Tenants[i].SetDefaults()
	}
	for i := range c.Models {
		c.Models[i].SetDefaults()
	}
}

// Validate checks the whole configuration, including referential integrity
// of bindings and permissions.
func (c *Config) Validate() error {
	if err := c.Platform.Validate(); err != nil {
		return fmt.Errorf("platform: %w", err)
	}

	tenants := make(map[string]bool, len(c.Tenants))
	for i := range c.Tenants {
		if err := c.Tenants[i].Validate(); err != nil {
			return err
		}
		if tenants[c.Tenants[i].ID] {
			return fmt.Errorf("duplicate tenant id '%s'", c.Tenants[i].ID)
		}
		tenants[c.Tenants[i].ID] = true
	}

	models := make(map[string]bool, len(c.Models))
	for i := range c.Models {
		if err := c.Models[i].Validate(); err != nil {
			return err
		}
		models[c.Models[i].ID] = true
	}

	tools := make(map[string]bool, len(c.Tools))
	for i := range c.Tools {
		if err := c.Tools[i].Validate(); err != nil {
			return err
		}
		if tools[c.Tools[i].Name] {
			return fmt.Errorf("duplicate tool name '%s'", c.Tools[i].Name)
		}
		tools[c.Tools[i].Name] = true
	}

	agents := make(map[string]bool, len(c.Agents))
	for i := range c.Agents {
		if err := c.Agents[i].Validate(); err != nil {
			return err
		}
		if agents[c.Agents[i].Name] {
			return fmt.Errorf("duplicate agent name '%s'", c.Agents[i].Name)
		}
		agents[c.Agents[i].Name] = true
		if c.Agents[i].ModelID != "" && !models[c.Agents[i].ModelID] {
			return fmt.Errorf("agent '%s': unknown model '%s'", c.Agents[i].Name, c.Agents[i].ModelID)
		}
		for _, binding := range c.Agents[i].Tools {
			if !tools[binding.Tool] {
				return fmt.Errorf("agent '%s': unknown tool '%s'", c.Agents[i].Name, binding.Tool)
			}
		}
	}

	for _, b := range c.Bindings {
		if !tenants[b.TenantID] {
			return fmt.Errorf("binding: unknown tenant '%s'", b.TenantID)
		}
		if !models[b.ModelID] {
			return fmt.Errorf("binding: unknown model '%s'", b.ModelID)
		}
	}
	for _, p := range c.AgentPermissions {
		if !tenants[p.TenantID] {
			return fmt.Errorf("agent permission: unknown tenant '%s'", p.TenantID)
		}
		if !agents[p.Agent] {
			return fmt.Errorf("agent permission: unknown agent '%s'", p.Agent)
		}
	}
	for _, p := range c.ToolPermissions {
		if !tenants[p.TenantID] {
			return fmt.Errorf("tool permission: unknown tenant '%s'", p.TenantID)
		}
		if !tools[p.Tool] {
			return fmt.Errorf("tool permission: unknown tool '%s'", p.Tool)
		}
	}

	return nil
}

// Load reads a YAML config file, expands environment references, applies
// defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, expands environment references, applies
// defaults, and validates.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	expanded := ExpandEnvVarsInData(raw)

	normalized, err := yaml.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(normalized, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// GenerateSchema produces the JSON Schema for the config file format.
func GenerateSchema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Config{})
	return json.MarshalIndent(schema, "", "  ")
}
