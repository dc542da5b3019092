// Package memory persists conversation sessions and messages.
package memory

import (
	"context"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// knownRoles are the only roles history returns. Anything else stored in
// the table is dropped on read.
var knownRoles = map[string]bool{
	RoleSystem:    true,
	RoleUser:      true,
	RoleAssistant: true,
}

// Session groups the messages of one ongoing conversation.
type Session struct {
	ID            string
	TenantID      string
	UserID        string
	AgentName     string
	ThreadID      string
	Metadata      map[string]any
	CreatedAt     time.Time
	LastMessageAt time.Time
}

// Message is a single conversation turn.
type Message struct {
	Role     string
	Content  string
	Metadata map[string]any
}

// Store is the conversation memory backend.
type Store interface {
	// GetOrCreateSession returns the newest session for the tenant/user
	// pair whose last activity falls within the window, or creates one.
	GetOrCreateSession(ctx context.Context, tenantID, userID string, window time.Duration) (*Session, error)

	// AppendMessage appends a message and advances the session's
	// last activity timestamp. Messages are never updated or deleted.
	AppendMessage(ctx context.Context, sessionID string, msg Message) error

	// GetHistory returns messages in chronological order, capped to the
	// most recent maxMessages (0 means no cap). System messages are
	// excluded unless includeSystem is set.
	GetHistory(ctx context.Context, sessionID string, maxMessages int, includeSystem bool) ([]Message, error)

	// GetMessageCount returns the total number of stored messages.
	GetMessageCount(ctx context.Context, sessionID string) (int, error)

	// DeleteSession removes a session and its messages.
	DeleteSession(ctx context.Context, sessionID string) error

	Close() error
}
