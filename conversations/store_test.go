package conversations

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/apifeed/apifeed/llm"
	"github.com/apifeed/apifeed/migrations"
)

// setupTestDB creates an in-memory database and runs migrations
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	migrationsPath := filepath.Join(cwd, "..", "migrations")
	if !fileExists(filepath.Join(migrationsPath, "000001_initial_schema.up.sql")) {
		migrationsPath = filepath.Join("..", "migrations")
	}

	if err := migrations.RunMigrations(db, migrationsPath, zerolog.Nop()); err != nil {
		_ = db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestStore_AppendAndLoad(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	if err := store.EnsureSession(ctx, "sess-1", "weather analysis"); err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}
	if err := store.AppendMessage(ctx, "sess-1", llm.NewUserMessage("hello")); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if err := store.AppendMessage(ctx, "sess-1", llm.NewAssistantMessage("hi there")); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	msgs, err := store.Messages(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != llm.RoleUser || msgs[0].Content != "hello" {
		t.Errorf("Unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Role != llm.RoleAssistant || msgs[1].Content != "hi there" {
		t.Errorf("Unexpected second message: %+v", msgs[1])
	}
}

func TestStore_MessagesScopedToSession(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	if err := store.EnsureSession(ctx, "sess-a", ""); err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}
	if err := store.EnsureSession(ctx, "sess-b", ""); err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}
	if err := store.AppendMessage(ctx, "sess-a", llm.NewUserMessage("for a")); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if err := store.AppendMessage(ctx, "sess-b", llm.NewUserMessage("for b")); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	msgs, err := store.Messages(ctx, "sess-a")
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "for a" {
		t.Errorf("Expected only sess-a messages, got %+v", msgs)
	}
}

func TestStore_Clear(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	if err := store.EnsureSession(ctx, "sess-1", ""); err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}
	if err := store.AppendMessage(ctx, "sess-1", llm.NewUserMessage("hello")); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if err := store.Clear(ctx, "sess-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	msgs, err := store.Messages(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("Expected no messages after clear, got %d", len(msgs))
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("Expected session row to survive clear, got %d sessions", len(sessions))
	}
}

func TestStore_EnsureSessionIdempotent(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	if err := store.EnsureSession(ctx, "sess-1", "first"); err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}
	if err := store.EnsureSession(ctx, "sess-1", "second"); err != nil {
		t.Fatalf("EnsureSession failed on repeat: %v", err)
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Title != "first" {
		t.Errorf("Expected original title kept, got %q", sessions[0].Title)
	}
}
