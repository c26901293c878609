// Package db persists AI chat sessions and their messages in a local
// SQLite database, grounded in the teacher's sqlx-over-SQLite repository
// pattern but scoped to the two tables this core owns.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/deskkube/clustercore/internal/db/migrations"
)

// Session is one row of the sessions table.
type Session struct {
	SessionID      string `db:"session_id" json:"session_id"`
	ClusterContext string `db:"cluster_context" json:"cluster_context"`
	CreatedAt      string `db:"created_at" json:"created_at"`
	LastActiveAt   string `db:"last_active_at" json:"last_active_at"`
	PermissionMode string `db:"permission_mode" json:"permission_mode"`
	Title          string `db:"title" json:"title"`
}

// Message is one row of the messages table. ToolCalls holds the
// serialized tool-call payload, if any, as a JSON string.
type Message struct {
	MessageID string  `db:"message_id" json:"message_id"`
	SessionID string  `db:"session_id" json:"session_id"`
	Role      string  `db:"role" json:"role"`
	Content   string  `db:"content" json:"content"`
	ToolCalls *string `db:"tool_calls" json:"tool_calls,omitempty"`
	Timestamp string  `db:"timestamp" json:"timestamp"`
}

// Store wraps a WAL-mode SQLite database holding AI sessions and messages.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite file at path (created if absent), enables
// WAL mode and foreign keys, and applies any pending migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	conn, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	conn.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; one pooled conn avoids SQLITE_BUSY storms
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}
	for _, entry := range entries {
		raw, err := migrations.FS.ReadFile(entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.Exec(string(raw)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	const q = `INSERT INTO sessions (session_id, cluster_context, created_at, last_active_at, permission_mode, title)
	           VALUES (:session_id, :cluster_context, :created_at, :last_active_at, :permission_mode, :title)`
	_, err := s.db.NamedExecContext(ctx, q, sess)
	return err
}

// TouchSession updates a session's last_active_at to the given RFC-3339
// timestamp.
func (s *Store) TouchSession(ctx context.Context, sessionID, lastActiveAt string) error {
	const q = `UPDATE sessions SET last_active_at = ? WHERE session_id = ?`
	_, err := s.db.ExecContext(ctx, q, lastActiveAt, sessionID)
	return err
}

// GetSession fetches one session by id, or (nil, nil) if it doesn't exist.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	err := s.db.GetContext(ctx, &sess, `SELECT * FROM sessions WHERE session_id = ?`, sessionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListSessionsByCluster returns every session recorded against context,
// most recently active first.
func (s *Store) ListSessionsByCluster(ctx context.Context, clusterContext string) ([]Session, error) {
	var sessions []Session
	const q = `SELECT * FROM sessions WHERE cluster_context = ? ORDER BY last_active_at DESC`
	err := s.db.SelectContext(ctx, &sessions, q, clusterContext)
	return sessions, err
}

// DeleteSession removes a session and, via ON DELETE CASCADE, its
// messages. Deleting an already-absent session is a non-error.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	return err
}

// AppendMessage inserts one message row, stamping Timestamp with now if
// unset.
func (s *Store) AppendMessage(ctx context.Context, msg Message) error {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	const q = `INSERT INTO messages (message_id, session_id, role, content, tool_calls, timestamp)
	           VALUES (:message_id, :session_id, :role, :content, :tool_calls, :timestamp)`
	_, err := s.db.NamedExecContext(ctx, q, msg)
	return err
}

// ListMessages returns every message for a session in timestamp order.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	var messages []Message
	const q = `SELECT * FROM messages WHERE session_id = ? ORDER BY timestamp ASC`
	err := s.db.SelectContext(ctx, &messages, q, sessionID)
	return messages, err
}
