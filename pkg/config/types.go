package config

import "fmt"

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

// Tenant is an isolated customer of the platform. Every resolved
// configuration, conversation, and retrieval query is scoped to one tenant.
type Tenant struct {
	ID     string       `yaml:"id" json:"id" jsonschema:"title=ID,description=Stable tenant identifier"`
	Name   string       `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Name"`
	Domain string       `yaml:"domain,omitempty" json:"domain,omitempty" jsonschema:"title=Domain"`
	Status TenantStatus `yaml:"status,omitempty" json:"status,omitempty" jsonschema:"enum=active,enum=suspended,default=active"`
}

// SetDefaults applies default values.
func (t *Tenant) SetDefaults() {
	if t.Status == "" {
		t.Status = TenantActive
	}
}

// Validate checks the tenant descriptor.
func (t *Tenant) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tenant id is required")
	}
	if t.Status != TenantActive && t.Status != TenantSuspended {
		return fmt.Errorf("tenant '%s': invalid status %q", t.ID, t.Status)
	}
	return nil
}

// ModelConfig describes a model available on the platform catalog.
type ModelConfig struct {
	ID       string `yaml:"id" json:"id"`
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty" jsonschema:"enum=openai,enum=ollama,default=openai"`

	// Model is the provider-side model identifier, e.g. "openai/gpt-4o-mini"
	// when routed through OpenRouter.
	Model string `yaml:"model" json:"model"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	ContextWindow int `yaml:"context_window,omitempty" json:"context_window,omitempty" jsonschema:"minimum=1,default=128000"`

	// Cost per thousand tokens, for accounting surfaces.
	CostPer1KInput  float64 `yaml:"cost_per_1k_input,omitempty" json:"cost_per_1k_input,omitempty"`
	CostPer1KOutput float64 `yaml:"cost_per_1k_output,omitempty" json:"cost_per_1k_output,omitempty"`

	Active bool `yaml:"active,omitempty" json:"active,omitempty"`
}

// SetDefaults applies default values.
func (m *ModelConfig) SetDefaults() {
	if m.Provider == "" {
		m.Provider = "openai"
	}
	if m.ContextWindow == 0 {
		m.ContextWindow = 128000
	}
}

// Validate checks the model descriptor.
func (m *ModelConfig) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("model id is required")
	}
	if m.Model == "" {
		return fmt.Errorf("model '%s': model identifier is required", m.ID)
	}
	return nil
}

// TenantModelBinding activates a catalog model for a tenant, with the
// tenant's credential reference and rate limits.
type TenantModelBinding struct {
	TenantID string `yaml:"tenant_id" json:"tenant_id"`
	ModelID  string `yaml:"model_id" json:"model_id"`

	// APIKey supports ${VAR} expansion; resolved through CredentialProvider
	// when empty.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	RateLimitRPM int  `yaml:"rate_limit_rpm,omitempty" json:"rate_limit_rpm,omitempty"`
	RateLimitTPM int  `yaml:"rate_limit_tpm,omitempty" json:"rate_limit_tpm,omitempty"`
	Active       bool `yaml:"active,omitempty" json:"active,omitempty"`
}

// OutputFormat is a renderer hint attached to tools and agents. The executor
// passes it through to response assembly; it never changes tool semantics.
type OutputFormat string

const (
	OutputStructuredJSON OutputFormat = "structured_json"
	OutputMarkdownTable  OutputFormat = "markdown_table"
	OutputChartData      OutputFormat = "chart_data"
	OutputSummaryText    OutputFormat = "summary_text"
)

// ValidOutputFormat reports whether f is a known output format.
func ValidOutputFormat(f OutputFormat) bool {
	switch f {
	case OutputStructuredJSON, OutputMarkdownTable, OutputChartData, OutputSummaryText, "":
		return true
	}
	return false
}

// ToolKind is the closed set of executable tool types.
type ToolKind string

const (
	ToolHTTPGet        ToolKind = "HTTP_GET"
	ToolHTTPPost       ToolKind = "HTTP_POST"
	ToolDocumentSearch ToolKind = "DOCUMENT_SEARCH"
	ToolDBQuery        ToolKind = "DB_QUERY"
	ToolOCR            ToolKind = "OCR"
)

// ValidToolKind reports whether k is a known tool kind.
func ValidToolKind(k ToolKind) bool {
	switch k {
	case ToolHTTPGet, ToolHTTPPost, ToolDocumentSearch, ToolDBQuery, ToolOCR:
		return true
	}
	return false
}

// Parameter describes one input parameter of a tool.
type Parameter struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type,omitempty" json:"type,omitempty" jsonschema:"enum=string,enum=number,enum=boolean,default=string"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// InputSchema declares the parameters a tool accepts and which are required.
type InputSchema struct {
	Parameters []Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Required   []string    `yaml:"required,omitempty" json:"required,omitempty"`
}

// RequiredSet returns the required parameter names as a set.
func (s InputSchema) RequiredSet() map[string]bool {
	set := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		set[name] = true
	}
	return set
}

// ToolSpec describes an executable capability. Config holds kind-specific
// settings decoded by the matching adapter (endpoint/method for HTTP, dsn and
// query for DB_QUERY, top_k for DOCUMENT_SEARCH).
type ToolSpec struct {
	ID           string         `yaml:"id" json:"id"`
	Name         string         `yaml:"name" json:"name"`
	Kind         ToolKind       `yaml:"kind" json:"kind" jsonschema:"enum=HTTP_GET,enum=HTTP_POST,enum=DOCUMENT_SEARCH,enum=DB_QUERY,enum=OCR"`
	Description  string         `yaml:"description,omitempty" json:"description,omitempty"`
	Config       map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
	InputSchema  InputSchema    `yaml:"input_schema,omitempty" json:"input_schema,omitempty"`
	OutputFormat OutputFormat   `yaml:"output_format,omitempty" json:"output_format,omitempty"`
	Active       bool           `yaml:"active,omitempty" json:"active,omitempty"`
}

// Validate checks the tool descriptor.
func (t *ToolSpec) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if !ValidToolKind(t.Kind) {
		return fmt.Errorf("tool '%s': unknown kind %q", t.Name, t.Kind)
	}
	if !ValidOutputFormat(t.OutputFormat) {
		return fmt.Errorf("tool '%s': unknown output format %q", t.Name, t.OutputFormat)
	}
	required := make(map[string]bool, len(t.InputSchema.Parameters))
	for _, p := range t.InputSchema.Parameters {
		required[p.Name] = true
	}
	for _, name := range t.InputSchema.Required {
		if !required[name] {
			return fmt.Errorf("tool '%s': required parameter %q not declared", t.Name, name)
		}
	}
	return nil
}

// ToolBinding attaches a tool to an agent with an execution priority.
// Lower priority values are tried first.
type ToolBinding struct {
	Tool     string `yaml:"tool" json:"tool"`
	Priority int    `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// AgentSpec describes a conversational agent in the catalog.
type AgentSpec struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// PromptTemplate is the agent's system prompt. {context} and {history}
	// placeholders are filled at invocation time.
	PromptTemplate string `yaml:"prompt_template,omitempty" json:"prompt_template,omitempty"`

	// ModelID overrides the tenant's active model when set.
	ModelID string `yaml:"model_id,omitempty" json:"model_id,omitempty"`

	Tools []ToolBinding `yaml:"tools,omitempty" json:"tools,omitempty"`

	DefaultOutputFormat OutputFormat `yaml:"default_output_format,omitempty" json:"default_output_format,omitempty"`
	Active              bool         `yaml:"active,omitempty" json:"active,omitempty"`
}

// Validate checks the agent descriptor.
func (a *AgentSpec) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("agent name is required")
	}
	if !ValidOutputFormat(a.DefaultOutputFormat) {
		return fmt.Errorf("agent '%s': unknown output format %q", a.Name, a.DefaultOutputFormat)
	}
	return nil
}

// AgentPermission enables an agent for a tenant.
type AgentPermission struct {
	TenantID string `yaml:"tenant_id" json:"tenant_id"`
	Agent    string `yaml:"agent" json:"agent"`
	Enabled  bool   `yaml:"enabled" json:"enabled"`
}

// ToolPermission enables a tool for a tenant.
type ToolPermission struct {
	TenantID string `yaml:"tenant_id" json:"tenant_id"`
	Tool     string `yaml:"tool" json:"tool"`
	Enabled  bool   `yaml:"enabled" json:"enabled"`
}
