package conversations

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/apifeed/apifeed/llm"
)

// Store persists conversation sessions and their messages.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an already-migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Session is one stored conversation.
type Session struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EnsureSession creates the session row if it does not already exist.
func (s *Store) EnsureSession(ctx context.Context, sessionID, title string) error {
	now := time.Now().Unix()
	query := sq.Insert("sessions").
		Columns("id", "title", "created_at", "updated_at").
		Values(sessionID, title, now, now)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	// SQLite requires "OR IGNORE" to come after "INSERT", so we replace "INSERT INTO" with "INSERT OR IGNORE INTO"
	queryStr = strings.Replace(queryStr, "INSERT INTO", "INSERT OR IGNORE INTO", 1)

	_, err = s.db.ExecContext(ctx, queryStr, args...)
	return err
}

// AppendMessage saves one turn and bumps the session's updated_at.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg llm.Message) error {
	now := time.Now().Unix()
	query := sq.Insert("messages").
		Columns("session_id", "role", "content", "created_at").
		Values(sessionID, string(msg.Role), msg.Content, now)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		return err
	}

	update := sq.Update("sessions").
		Set("updated_at", now).
		Where(sq.Eq{"id": sessionID})

	queryStr, args, err = update.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = s.db.ExecContext(ctx, queryStr, args...)
	return err
}

// Messages loads a session's turns in insertion order.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]llm.Message, error) {
	query := sq.Select("role", "content").
		From("messages").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("id ASC")

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []llm.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, err
		}
		msgs = append(msgs, llm.Message{Role: llm.Role(role), Content: content})
	}
	return msgs, rows.Err()
}

// Clear deletes a session's messages. The session row stays so the
// same ID can keep accumulating turns.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	query := sq.Delete("messages").Where(sq.Eq{"session_id": sessionID})

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = s.db.ExecContext(ctx, queryStr, args...)
	return err
}

// Sessions lists stored sessions, most recently updated first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	query := sq.Select("id", "title", "created_at", "updated_at").
		From("sessions").
		OrderBy("updated_at DESC")

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var created, updated int64
		if err := rows.Scan(&sess.ID, &sess.Title, &created, &updated); err != nil {
			return nil, err
		}
		sess.CreatedAt = time.Unix(created, 0)
		sess.UpdatedAt = time.Unix(updated, 0)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
