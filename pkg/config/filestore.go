package config

import (
	"context"
	"sort"
)

// FileStore serves the catalog of a loaded Config. It is the Store
// implementation behind the CLI and the tests; a production deployment
// would put its management database behind the same interface.
type FileStore struct {
	tenants  map[string]Tenant
	models   map[string]ModelConfig
	bindings []TenantModelBinding
	tools    map[string]ToolSpec
	agents   map[string]AgentSpec

	agentPerms map[string]map[string]bool // tenant -> agent -> enabled
	toolPerms  map[string]map[string]bool // tenant -> tool -> enabled
}

var _ Store = (*FileStore)(nil)

// NewFileStore builds a FileStore from a validated Config.
func NewFileStore(cfg *Config) *FileStore {
	s := &FileStore{
		tenants:    make(map[string]Tenant, len(cfg.Tenants)),
		models:     make(map[string]ModelConfig, len(cfg.Models)),
		bindings:   cfg.Bindings,
		tools:      make(map[string]ToolSpec, len(cfg.Tools)),
		agents:     make(map[string]AgentSpec, len(cfg.Agents)),
		agentPerms: make(map[string]map[string]bool),
		toolPerms:  make(map[string]map[string]bool),
	}

	for _, t := range cfg.Tenants {
		s.tenants[t.ID] = t
	}
	for _, m := range cfg.Models {
		s.models[m.ID] = m
	}
	for _, t := range cfg.Tools {
		s.tools[t.Name] = t
	}
	for _, a := range cfg.Agents {
		s.agents[a.Name] = a
	}
	for _, p := range cfg.AgentPermissions {
		if s.agentPerms[p.TenantID] == nil {
			s.agentPerms[p.TenantID] = make(map[string]bool)
		}
		s.agentPerms[p.TenantID][p.Agent] = p.Enabled
	}
	for _, p := range cfg.ToolPermissions {
		if s.toolPerms[p.TenantID] == nil {
			s.toolPerms[p.TenantID] = make(map[string]bool)
		}
		s.toolPerms[p.TenantID][p.Tool] = p.Enabled
	}

	return s
}

func (s *FileStore) GetTenant(_ context.Context, tenantID string) (Tenant, error) {
	tenant, ok := s.tenants[tenantID]
	if !ok {
		return Tenant{}, &NotFoundError{Kind: "tenant", Name: tenantID}
	}
	return tenant, nil
}

func (s *FileStore) GetAgents(_ context.Context) ([]AgentSpec, error) {
	agents := make([]AgentSpec, 0, len(s.agents))
	for _, a := range s.agents {
		if a.Active {
			agents = append(agents, a)
		}
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
	return agents, nil
}

func (s *FileStore) GetEnabledAgents(ctx context.Context, tenantID string) ([]AgentSpec, error) {
	all, err := s.GetAgents(ctx)
	if err != nil {
		return nil, err
	}

	perms := s.agentPerms[tenantID]
	enabled := make([]AgentSpec, 0, len(all))
	for _, a := range all {
		if perms[a.Name] {
			enabled = append(enabled, a)
		}
	}
	return enabled, nil
}

func (s *FileStore) GetEnabledTools(_ context.Context, agentName, tenantID string) ([]ToolSpec, error) {
	agent, ok := s.agents[agentName]
	if !ok || !agent.Active {
		return nil, &NotFoundError{Kind: "agent", Name: agentName}
	}

	bindings := make([]ToolBinding, len(agent.Tools))
	copy(bindings, agent.Tools)
	sort.SliceStable(bindings, func(i, j int) bool {
		return bindings[i].Priority < bindings[j].Priority
	})

	perms := s.toolPerms[tenantID]
	specs := make([]ToolSpec, 0, len(bindings))
	for _, b := range bindings {
		spec, ok := s.tools[b.Tool]
		if !ok || !spec.Active {
			continue
		}
		if !perms[spec.Name] {
			continue
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (s *FileStore) GetModel(_ context.Context, modelID string) (ModelConfig, error) {
	model, ok := s.models[modelID]
	if !ok {
		return ModelConfig{}, &NotFoundError{Kind: "model", Name: modelID}
	}
	return model, nil
}

func (s *FileStore) GetActiveModel(_ context.Context, tenantID string) (ModelConfig, TenantModelBinding, error) {
	for _, b := range s.bindings {
		if b.TenantID != tenantID || !b.Active {
			continue
		}
		model, ok := s.models[b.ModelID]
		if !ok || !model.Active {
			continue
		}
		return model, b, nil
	}
	return ModelConfig{}, TenantModelBinding{}, &NoModelConfiguredError{TenantID: tenantID}
}
