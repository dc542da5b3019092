package memory

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

// SQLStore keeps sessions and messages in a relational database. It
// supports the sqlite3, postgres and mysql drivers.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

var _ Store = (*SQLStore)(nil)

const createSessionsSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id VARCHAR(255) PRIMARY KEY,
    tenant_id VARCHAR(255) NOT NULL,
    user_id VARCHAR(255) NOT NULL,
    agent_name VARCHAR(255) NOT NULL DEFAULT '',
    thread_id VARCHAR(255) NOT NULL,
    metadata TEXT,
    created_at TIMESTAMP NOT NULL,
    last_message_at TIMESTAMP NOT NULL
)`

const createSessionsIndexSQL = `
CREATE INDEX IF NOT EXISTS ix_sessions_tenant_user ON sessions(tenant_id, user_id, last_message_at)`

const createMessagesSQL = `
CREATE TABLE IF NOT EXISTS messages (
    id %s,
    session_id VARCHAR(255) NOT NULL,
    role VARCHAR(50) NOT NULL,
    content TEXT NOT NULL,
    metadata TEXT,
    sequence_num BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`

const createMessagesIndexSQL = `
CREATE INDEX IF NOT EXISTS ix_messages_session_seq ON messages(session_id, sequence_num)`

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

	store, err := NewSQLStoreFromDB(db, dialectForDriver(cfg.Driver))
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStoreFromDB wraps an existing connection. Dialect is one of
// sqlite, postgres, mysql.
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
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func dialectForDriver(driver string) string {
	switch driver {
	case "sqlite3":
		return "sqlite"
	case "mysql":
		return "mysql"
	default:
		return "postgres"
	}
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	switch s.dialect {
	case "postgres":
		idColumn = "BIGSERIAL PRIMARY KEY"
	case "mysql":
		idColumn = "BIGINT PRIMARY KEY AUTO_INCREMENT"
	}

	statements := []string{
		createSessionsSQL,
		fmt.Sprintf(createMessagesSQL, idColumn),
	}
	// MySQL has no CREATE INDEX IF NOT EXISTS; index errors there are
	// ignored on re-run.
	indexStatements := []string{createSessionsIndexSQL, createMessagesIndexSQL}
	if s.dialect == "mysql" {
		indexStatements = []string{
			strings.Replace(createSessionsIndexSQL, "IF NOT EXISTS ", "", 1),
			strings.Replace(createMessagesIndexSQL, "IF NOT EXISTS ", "", 1),
		}
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, stmt := range indexStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil && s.dialect != "mysql" {
			return err
		}
	}
	return nil
}

// q rewrites ? placeholders to numbered ones for postgres.
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

func (s *SQLStore) GetOrCreateSession(ctx context.Context, tenantID, userID string, window time.Duration) (*Session, error) {
	if tenantID == "" || userID == "" {
		return nil, fmt.Errorf("tenant and user IDs are required")
	}

	now := time.Now().UTC()
	cutoff := now.Add(-window)

	query := s.q(`
SELECT session_id, tenant_id, user_id, agent_name, thread_id, metadata, created_at, last_message_at
FROM sessions
WHERE tenant_id = ? AND user_id = ? AND last_message_at >= ?
ORDER BY last_message_at DESC
LIMIT 1`)

	session := &Session{}
	var metadataJSON sql.NullString
	err := s.db.QueryRowContext(ctx, query, tenantID, userID, cutoff).Scan(
		&session.ID, &session.TenantID, &session.UserID, &session.AgentName,
		&session.ThreadID, &metadataJSON, &session.CreatedAt, &session.LastMessageAt,
	)
	if err == nil {
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &session.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal session metadata: %w", err)
			}
		}
		return session, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	session = &Session{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		UserID:        userID,
		ThreadID:      uuid.NewString(),
		Metadata:      map[string]any{},
		CreatedAt:     now,
		LastMessageAt: now,
	}

	insert := s.q(`
INSERT INTO sessions (session_id, tenant_id, user_id, agent_name, thread_id, metadata, created_at, last_message_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, insert,
		session.ID, session.TenantID, session.UserID, session.AgentName,
		session.ThreadID, "{}", session.CreatedAt, session.LastMessageAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return session, nil
}

func (s *SQLStore) AppendMessage(ctx context.Context, sessionID string, msg Message) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	metadataJSON := "{}"
	if len(msg.Metadata) > 0 {
		data, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal message metadata: %w", err)
		}
		metadataJSON = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var sequenceNum int64
	seqQuery := s.q(`SELECT COALESCE(MAX(sequence_num), 0) + 1 FROM messages WHERE session_id = ?`)
	if err = tx.QueryRowContext(ctx, seqQuery, sessionID).Scan(&sequenceNum); err != nil {
		return fmt.Errorf("failed to get sequence number: %w", err)
	}

	now := time.Now().UTC()
	insert := s.q(`
INSERT INTO messages (session_id, role, content, metadata, sequence_num, created_at)
VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err = tx.ExecContext(ctx, insert, sessionID, msg.Role, msg.Content, metadataJSON, sequenceNum, now); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	touch := s.q(`UPDATE sessions SET last_message_at = ? WHERE session_id = ?`)
	if _, err = tx.ExecContext(ctx, touch, now, sessionID); err != nil {
		return fmt.Errorf("failed to update session timestamp: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) GetHistory(ctx context.Context, sessionID string, maxMessages int, includeSystem bool) ([]Message, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID cannot be empty")
	}

	roles := []any{RoleUser, RoleAssistant}
	if includeSystem {
		roles = append(roles, RoleSystem)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(roles)), ", ")

	query := `
SELECT role, content, metadata
FROM messages
WHERE session_id = ? AND role IN (` + placeholders + `)
ORDER BY sequence_num ASC, id ASC`
	args := append([]any{sessionID}, roles...)

	if maxMessages > 0 {
		query = `
SELECT role, content, metadata FROM (
    SELECT role, content, metadata, sequence_num, id
    FROM messages
    WHERE session_id = ? AND role IN (` + placeholders + `)
    ORDER BY sequence_num DESC, id DESC
    LIMIT ?
) sub ORDER BY sequence_num ASC, id ASC`
		args = append(args, maxMessages)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var metadataJSON sql.NullString
		if err := rows.Scan(&msg.Role, &msg.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if !knownRoles[msg.Role] {
			continue
		}
		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "{}" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal message metadata: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

func (s *SQLStore) GetMessageCount(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("sessionID cannot be empty")
	}

	var count int
	query := s.q(`SELECT COUNT(*) FROM messages WHERE session_id = ?`)
	if err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func (s *SQLStore) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM messages WHERE session_id = ?`), sessionID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM sessions WHERE session_id = ?`), sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
