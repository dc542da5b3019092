// Package checkpoint persists mid-turn execution state so an interrupted
// turn can resume after restart.
package checkpoint

import (
	"context"
	"time"
)

// Phase marks how far a turn progressed before the checkpoint was taken.
type Phase string

const (
	PhaseExtracted     Phase = "extracted"
	PhaseToolsExecuted Phase = "tools_executed"
	PhaseAssembled     Phase = "assembled"
)

// State is the recoverable snapshot of one turn.
type State struct {
	Phase          Phase             `json:"phase"`
	Intent         string            `json:"intent,omitempty"`
	Entities       map[string]string `json:"entities,omitempty"`
	PendingTools   []string          `json:"pending_tools,omitempty"`
	PartialResults map[string]any    `json:"partial_results,omitempty"`
}

// Checkpoint is a stored state linked to its predecessor in the thread.
// Seq increases by one per checkpoint within a thread, so ordering holds
// even when several checkpoints share a timestamp.
type Checkpoint struct {
	ThreadID     string
	CheckpointID string
	ParentID     string
	Seq          int64
	State        State
	Metadata     map[string]any
	CreatedAt    time.Time
}

// Store persists checkpoints keyed by (thread_id, checkpoint_id).
type Store interface {
	// Save stores a new checkpoint whose parent is the thread's current
	// latest checkpoint, if any.
	Save(ctx context.Context, threadID string, state State, metadata map[string]any) (*Checkpoint, error)

	// Load retrieves one checkpoint.
	Load(ctx context.Context, threadID, checkpointID string) (*Checkpoint, error)

	// Latest returns the newest checkpoint for the thread, or nil when
	// the thread has none.
	Latest(ctx context.Context, threadID string) (*Checkpoint, error)

	// Clear removes every checkpoint of the thread.
	Clear(ctx context.Context, threadID string) error

	Close() error
}
