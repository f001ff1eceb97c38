package message

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store handles persistence of messages.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the message database and initializes the
// schema.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL,
		role          TEXT NOT NULL,
		type          TEXT NOT NULL,
		content       TEXT NOT NULL,
		fragment_json TEXT,
		created_at    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_project_created
		ON messages (project_id, created_at DESC);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}

// CreateMessage persists one message. ID and CreatedAt are assigned when
// unset.
func (s *Store) CreateMessage(ctx context.Context, m *Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	var fragmentJSON sql.NullString
	if m.Fragment != nil {
		data, err := json.Marshal(m.Fragment)
		if err != nil {
			return fmt.Errorf("failed to marshal fragment: %w", err)
		}
		fragmentJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, project_id, role, type, content, fragment_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, string(m.Role), string(m.Type), m.Content, fragmentJSON, m.CreatedAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListRecent returns the last n messages for a project, newest-first.
// Callers that seed conversation history must re-order oldest-first.
func (s *Store) ListRecent(ctx context.Context, projectID string, n int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, role, type, content, fragment_json, created_at
		 FROM messages WHERE project_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		projectID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var role, typ string
		var fragmentJSON sql.NullString
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.ProjectID, &role, &typ, &m.Content, &fragmentJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = Role(role)
		m.Type = Type(typ)
		m.CreatedAt = time.UnixMicro(createdAt).UTC()
		if fragmentJSON.Valid {
			var f Fragment
			if err := json.Unmarshal([]byte(fragmentJSON.String), &f); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fragment for message %s: %w", m.ID, err)
			}
			m.Fragment = &f
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
