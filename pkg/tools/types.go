package tools

import (
	"context"
	"fmt"

	"github.com/agenthub/agenthub/pkg/config"
)

// AuthContext carries the caller's identity into a tool invocation. Adapters
// use it for scoping and credential forwarding and never persist it.
type AuthContext struct {
	TenantID    string
	BearerToken string
}

// Result is what a tool execution produced. Content is the textual form
// handed to response assembly; Data preserves structure when the tool
// returned any.
type Result struct {
	Content  string
	Data     any
	Metadata map[string]any
}

// ToolExecutionError wraps a failed invocation with the tool's name.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool '%s' execution failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// Adapter executes one tool kind. Implementations are stateless per call
// and must not keep tenant identity between invocations.
type Adapter interface {
	Name() string

	Kind() config.ToolKind

	// Execute runs the tool with bound arguments. On failure it must leave
	// no partial external state behind.
	Execute(ctx context.Context, args map[string]any, auth AuthContext) (*Result, error)
}
