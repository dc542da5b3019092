package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/agenthub/agenthub/pkg/config"
)

// SQLStore keeps checkpoints in a relational database.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

var _ Store = (*SQLStore)(nil)

const createCheckpointsSQL = `
CREATE TABLE IF NOT EXISTS checkpoints (
    thread_id VARCHAR(255) NOT NULL,
    checkpoint_id VARCHAR(255) NOT NULL,
    parent_id VARCHAR(255),
    seq BIGINT NOT NULL,
    state BLOB NOT NULL,
    metadata TEXT,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (thread_id, checkpoint_id)
)`

// NewSQLStore opens the configured database and initializes the schema.
func NewSQLStore(cfg *config.DatabaseConfig) (*SQLStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	dialect := "postgres"
	switch cfg.Driver {
	case "sqlite3":
		dialect = "sqlite"
	case "mysql":
		dialect = "mysql"
	}

	store, err := NewSQLStoreFromDB(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStoreFromDB wraps an existing connection.
func NewSQLStoreFromDB(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	switch dialect {
	case "sqlite", "postgres", "mysql":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: sqlite, postgres, mysql)", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}

	schema := createCheckpointsSQL
	if dialect == "postgres" {
		schema = strings.Replace(schema, "state BLOB", "state BYTEA", 1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) q(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Save(ctx context.Context, threadID string, state State, metadata map[string]any) (*Checkpoint, error) {
	if threadID == "" {
		return nil, fmt.Errorf("threadID cannot be empty")
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	metadataJSON := "{}"
	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON = string(data)
	}

	parent, err := s.Latest(ctx, threadID)
	if err != nil {
		return nil, err
	}
	parentID := ""
	var seq int64 = 1
	if parent != nil {
		parentID = parent.CheckpointID
		seq = parent.Seq + 1
	}

	cp := &Checkpoint{
		ThreadID:     threadID,
		CheckpointID: uuid.NewString(),
		ParentID:     parentID,
		Seq:          seq,
		State:        state,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}

	insert := s.q(`
INSERT INTO checkpoints (thread_id, checkpoint_id, parent_id, seq, state, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, insert,
		cp.ThreadID, cp.CheckpointID, cp.ParentID, cp.Seq, stateJSON, metadataJSON, cp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert checkpoint: %w", err)
	}
	return cp, nil
}

func (s *SQLStore) Load(ctx context.Context, threadID, checkpointID string) (*Checkpoint, error) {
	if threadID == "" || checkpointID == "" {
		return nil, fmt.Errorf("thread and checkpoint IDs are required")
	}

	query := s.q(`
SELECT thread_id, checkpoint_id, parent_id, seq, state, metadata, created_at
FROM checkpoints
WHERE thread_id = ? AND checkpoint_id = ?`)
	cp, err := s.scanCheckpoint(s.db.QueryRowContext(ctx, query, threadID, checkpointID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("checkpoint %s not found in thread %s", checkpointID, threadID)
	}
	return cp, err
}

func (s *SQLStore) Latest(ctx context.Context, threadID string) (*Checkpoint, error) {
	if threadID == "" {
		return nil, fmt.Errorf("threadID cannot be empty")
	}

	// seq breaks ties between checkpoints written within one clock tick,
	// which happens when a turn saves per-tool checkpoints back to back.
	query := s.q(`
SELECT thread_id, checkpoint_id, parent_id, seq, state, metadata, created_at
FROM checkpoints
WHERE thread_id = ?
ORDER BY seq DESC
LIMIT 1`)
	cp, err := s.scanCheckpoint(s.db.QueryRowContext(ctx, query, threadID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cp, err
}

func (s *SQLStore) scanCheckpoint(row *sql.Row) (*Checkpoint, error) {
	cp := &Checkpoint{}
	var parentID sql.NullString
	var stateBlob []byte
	var metadataJSON sql.NullString

	err := row.Scan(&cp.ThreadID, &cp.CheckpointID, &parentID, &cp.Seq, &stateBlob, &metadataJSON, &cp.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
	}

	cp.ParentID = parentID.String
	if err := json.Unmarshal(stateBlob, &cp.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "{}" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &cp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return cp, nil
}

func (s *SQLStore) Clear(ctx context.Context, threadID string) error {
	if threadID == "" {
		return fmt.Errorf("threadID cannot be empty")
	}
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM checkpoints WHERE thread_id = ?`), threadID); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
