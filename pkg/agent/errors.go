package agent

import "fmt"

// ResponseAssemblyError is fatal for the turn: no assistant message is
// persisted when assembly fails.
type ResponseAssemblyError struct {
	Agent string
	Err   error
}

func (e *ResponseAssemblyError) Error() string {
	return fmt.Sprintf("agent '%s' failed to assemble a response: %v", e.Agent, e.Err)
}

func (e *ResponseAssemblyError) Unwrap() error {
	return e.Err
}

// MemoryError reports a failed history read or write.
type MemoryError struct {
	SessionID string
	Err       error
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("memory operation failed for session '%s': %v", e.SessionID, e.Err)
}

func (e *MemoryError) Unwrap() error {
	return e.Err
}
