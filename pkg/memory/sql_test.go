package memory

import (
	"context"
	"database/sql"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	// A single connection keeps the in-memory database alive.
	db.SetMaxOpenConns(1)

	store, err := NewSQLStoreFromDB(db, "sqlite")
	if err != nil {
		t.Fatalf("NewSQLStoreFromDB() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetOrCreateSession_CreatesAndReuses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.GetOrCreateSession(ctx, "acme", "user-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}
	if created.ID == "" || created.ThreadID == "" {
		t.Fatal("new session missing IDs")
	}
	if created.TenantID != "acme" || created.UserID != "user-1" {
		t.Errorf("session = %+v, wrong tenant/user", created)
	}

	reused, err := store.GetOrCreateSession(ctx, "acme", "user-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}
	if reused.ID != created.ID {
		t.Errorf("session not reused within activity window: %s != %s", reused.ID, created.ID)
	}

	// Another user gets a different session.
	other, err := store.GetOrCreateSession(ctx, "acme", "user-2", 30*time.Minute)
	if err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}
	if other.ID == created.ID {
		t.Error("sessions not isolated by user")
	}
}

func TestGetOrCreateSession_ExpiredWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.GetOrCreateSession(ctx, "acme", "user-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}

	// Age the session beyond the window.
	_, err = store.db.ExecContext(ctx,
		`UPDATE sessions SET last_message_at = ? WHERE session_id = ?`,
		time.Now().UTC().Add(-time.Hour), first.ID)
	if err != nil {
		t.Fatalf("failed to age session: %v", err)
	}

	second, err := store.GetOrCreateSession(ctx, "acme", "user-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}
	if second.ID == first.ID {
		t.Error("expired session was reused")
	}
	if second.ThreadID == first.ThreadID {
		t.Error("new session shares thread with expired one")
	}
}

func TestAppendMessage_AdvancesActivity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, err := store.GetOrCreateSession(ctx, "acme", "user-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("GetOrCreateSession() error = %v", err)
	}

	err = store.AppendMessage(ctx, session.ID, Message{
		Role:     RoleUser,
		Content:  "where is my order?",
		Metadata: map[string]any{"agent": "shipment_agent"},
	})
	if err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	count, err := store.GetMessageCount(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetMessageCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("GetMessageCount() = %d, want 1", count)
	}
}

func TestGetHistory_OrderAndCap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, _ := store.GetOrCreateSession(ctx, "acme", "user-1", 30*time.Minute)
	turns := []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "first question"},
		{Role: RoleAssistant, Content: "first answer"},
		{Role: RoleUser, Content: "second question"},
		{Role: RoleAssistant, Content: "second answer"},
	}
	for _, m := range turns {
		if err := store.AppendMessage(ctx, session.ID, m); err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
	}

	history, err := store.GetHistory(ctx, session.ID, 0, false)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("GetHistory() returned %d messages, want 4 (system excluded)", len(history))
	}
	if history[0].Content != "first question" || history[3].Content != "second answer" {
		t.Errorf("GetHistory() out of order: %+v", history)
	}

	withSystem, err := store.GetHistory(ctx, session.ID, 0, true)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(withSystem) != 5 || withSystem[0].Role != RoleSystem {
		t.Errorf("GetHistory(includeSystem) = %+v", withSystem)
	}

	capped, err := store.GetHistory(ctx, session.ID, 2, false)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(capped) != 2 {
		t.Fatalf("GetHistory(max=2) returned %d messages", len(capped))
	}
	if capped[0].Content != "second question" || capped[1].Content != "second answer" {
		t.Errorf("GetHistory(max=2) kept wrong messages: %+v", capped)
	}
}

func TestGetHistory_DropsUnknownRoles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, _ := store.GetOrCreateSession(ctx, "acme", "user-1", 30*time.Minute)
	store.AppendMessage(ctx, session.ID, Message{Role: RoleUser, Content: "hello"})
	store.AppendMessage(ctx, session.ID, Message{Role: "function", Content: "raw tool output"})
	store.AppendMessage(ctx, session.ID, Message{Role: RoleAssistant, Content: "hi"})

	history, err := store.GetHistory(ctx, session.ID, 0, false)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("GetHistory() returned %d messages, want 2", len(history))
	}
	for _, m := range history {
		if m.Role == "function" {
			t.Error("unknown role leaked into history")
		}
	}
}

func TestDeleteSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session, _ := store.GetOrCreateSession(ctx, "acme", "user-1", 30*time.Minute)
	store.AppendMessage(ctx, session.ID, Message{Role: RoleUser, Content: "hello"})

	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}

	count, err := store.GetMessageCount(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetMessageCount() error = %v", err)
	}
	if count != 0 {
		t.Errorf("messages survived session deletion: %d", count)
	}
}

func TestTrimToTokenBudget(t *testing.T) {
	if _, err := NewTokenCounter("gpt-4o-mini"); err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}

	history := []Message{
		{Role: RoleUser, Content: "first question about shipping times and delivery windows"},
		{Role: RoleAssistant, Content: "a fairly long answer describing the shipping policy in detail"},
		{Role: RoleUser, Content: "short follow-up"},
	}

	trimmed, err := TrimToTokenBudget(history, "gpt-4o-mini", 20)
	if err != nil {
		t.Fatalf("TrimToTokenBudget() error = %v", err)
	}
	if len(trimmed) >= len(history) {
		t.Errorf("TrimToTokenBudget() kept %d messages, expected trimming", len(trimmed))
	}
	if len(trimmed) > 0 && trimmed[len(trimmed)-1].Content != "short follow-up" {
		t.Error("TrimToTokenBudget() dropped the newest message")
	}

	all, err := TrimToTokenBudget(history, "gpt-4o-mini", 100000)
	if err != nil {
		t.Fatalf("TrimToTokenBudget() error = %v", err)
	}
	if len(all) != len(history) {
		t.Errorf("TrimToTokenBudget() with large budget kept %d of %d", len(all), len(history))
	}
}

func TestSQLStore_RejectsUnknownDialect(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	defer db.Close()

	if _, err := NewSQLStoreFromDB(db, "oracle"); err == nil {
		t.Error("NewSQLStoreFromDB() expected error for unsupported dialect")
	}
}
