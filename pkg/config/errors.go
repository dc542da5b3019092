package config

import "fmt"

// NotFoundError indicates a tenant, agent, or tool that does not exist or is
// not visible to the caller. Inactive tenants look identical to missing ones.
type NotFoundError struct {
	Kind string // "tenant", "agent", "tool", "model"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Name)
}

// PermissionDeniedError indicates an entity that exists in the catalog but is
// not enabled for the requesting tenant.
type PermissionDeniedError struct {
	TenantID string
	Kind     string
	Name     string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("%s '%s' is not enabled for tenant '%s'", e.Kind, e.Name, e.TenantID)
}

// NoModelConfiguredError indicates a tenant with no active model binding.
type NoModelConfiguredError struct {
	TenantID string
}

func (e *NoModelConfiguredError) Error() string {
	return fmt.Sprintf("no active model configured for tenant '%s'", e.TenantID)
}
