package config

import (
	"context"
	"errors"
	"strings"
)

// Resolver is the per-request view of one tenant's configuration. It is
// built once at the start of a request and never cached across requests, so
// catalog changes take effect on the next request.
type Resolver struct {
	store       Store
	credentials CredentialProvider
	tenant      Tenant

	agents []AgentSpec // enabled for the tenant, resolved eagerly
}

// NewResolver resolves the tenant and its enabled agent set. Unknown and
// suspended tenants both return NotFoundError; a suspended tenant must be
// indistinguishable from a missing one.
func NewResolver(ctx context.Context, store Store, credentials CredentialProvider, tenantID string) (*Resolver, error) {
	tenant, err := store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Status != TenantActive {
		return nil, &NotFoundError{Kind: "tenant", Name: tenantID}
	}

	agents, err := store.GetEnabledAgents(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		store:       store,
		credentials: credentials,
		tenant:      tenant,
		agents:      agents,
	}, nil
}

// Tenant returns the resolved tenant.
func (r *Resolver) Tenant() Tenant {
	return r.tenant
}

// EnabledAgents returns the agents enabled for this tenant.
func (r *Resolver) EnabledAgents() []AgentSpec {
	return r.agents
}

// Agent returns the named agent if it is enabled for this tenant. An agent
// that exists in the catalog but is not enabled yields
// PermissionDeniedError; anything else yields NotFoundError.
func (r *Resolver) Agent(ctx context.Context, name string) (AgentSpec, error) {
	for _, a := range r.agents {
		if strings.EqualFold(a.Name, name) {
			return a, nil
		}
	}

	all, err := r.store.GetAgents(ctx)
	if err != nil {
		return AgentSpec{}, err
	}
	for _, a := range all {
		if strings.EqualFold(a.Name, name) {
			return AgentSpec{}, &PermissionDeniedError{
				TenantID: r.tenant.ID,
				Kind:     "agent",
				Name:     a.Name,
			}
		}
	}

	return AgentSpec{}, &NotFoundError{Kind: "agent", Name: name}
}

// AgentTools returns the agent's enabled tools in priority order. Tools
// disabled for the tenant are silently absent.
func (r *Resolver) AgentTools(ctx context.Context, agentName string) ([]ToolSpec, error) {
	if _, err := r.Agent(ctx, agentName); err != nil {
		return nil, err
	}
	return r.store.GetEnabledTools(ctx, agentName, r.tenant.ID)
}

// ActiveModel returns the tenant's active model and binding, with the
// credential resolved. A binding without an inline key falls back to the
// CredentialProvider.
func (r *Resolver) ActiveModel(ctx context.Context) (ModelConfig, TenantModelBinding, error) {
	model, binding, err := r.store.GetActiveModel(ctx, r.tenant.ID)
	if err != nil {
		return ModelConfig{}, TenantModelBinding{}, err
	}

	if binding.APIKey == "" && r.credentials != nil {
		key, err := r.credentials.Credential(ctx, r.tenant.ID)
		if err != nil {
			return ModelConfig{}, TenantModelBinding{}, err
		}
		binding.APIKey = key
	}

	return model, binding, nil
}

// AgentModel returns the model an agent runs on: the agent's override when
// set, otherwise the tenant's active model. The credential binding always
// comes from the tenant.
func (r *Resolver) AgentModel(ctx context.Context, agent AgentSpec) (ModelConfig, TenantModelBinding, error) {
	model, binding, err := r.ActiveModel(ctx)
	if err != nil {
		return ModelConfig{}, TenantModelBinding{}, err
	}
	if agent.ModelID != "" && agent.ModelID != model.ID {
		override, err := r.store.GetModel(ctx, agent.ModelID)
		if err != nil {
			return ModelConfig{}, TenantModelBinding{}, err
		}
		model = override
	}
	return model, binding, nil
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsPermissionDenied reports whether err is a PermissionDeniedError.
func IsPermissionDenied(err error) bool {
	var pd *PermissionDeniedError
	return errors.As(err, &pd)
}
