package config

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Store is the narrow read surface the orchestration core needs from the
// management plane. Implementations own how the catalog is persisted and
// administered; the core only resolves it per request.
type Store interface {
	// GetTenant returns the tenant descriptor, including suspended tenants.
	// Missing tenants return NotFoundError.
	GetTenant(ctx context.Context, tenantID string) (Tenant, error)

	// GetAgents returns all active agents in the catalog, regardless of
	// tenant permissions.
	GetAgents(ctx context.Context) ([]AgentSpec, error)

	// GetEnabledAgents returns the active agents enabled for the tenant.
	GetEnabledAgents(ctx context.Context, tenantID string) ([]AgentSpec, error)

	// GetEnabledTools returns the agent's tool specs that are active and
	// enabled for the tenant, ordered by binding priority.
	GetEnabledTools(ctx context.Context, agentName, tenantID string) ([]ToolSpec, error)

	// GetActiveModel returns the tenant's active model and its binding.
	// Absence returns NoModelConfiguredError.
	GetActiveModel(ctx context.Context, tenantID string) (ModelConfig, TenantModelBinding, error)

	// GetModel returns a catalog model by id, used for per-agent model
	// overrides. Missing models return NotFoundError.
	GetModel(ctx context.Context, modelID string) (ModelConfig, error)
}

// CredentialProvider resolves the API credential for a tenant's model
// binding. Secret storage and decryption live behind this interface.
type CredentialProvider interface {
	Credential(ctx context.Context, tenantID string) (string, error)
}

// StaticCredentialProvider returns a fixed credential for every tenant.
// Useful for tests and single-key deployments.
type StaticCredentialProvider string

func (p StaticCredentialProvider) Credential(_ context.Context, _ string) (string, error) {
	return string(p), nil
}

// EnvCredentialProvider resolves credentials from environment variables,
// trying <PREFIX>_<TENANT_ID> then <PREFIX>.
type EnvCredentialProvider struct {
	Prefix string // e.g. "OPENROUTER_API_KEY"
}

func (p EnvCredentialProvider) Credential(_ context.Context, tenantID string) (string, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(tenantID, "-", "_"))
	if key := os.Getenv(p.Prefix + "_" + normalized); key != "" {
		return key, nil
	}
	if key := os.Getenv(p.Prefix); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no credential found for tenant '%s' (checked %s_%s, %s)",
		tenantID, p.Prefix, normalized, p.Prefix)
}
