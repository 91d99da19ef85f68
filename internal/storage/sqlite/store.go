// Package sqlite persists completion transcripts in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/localllm/ollama-gateway/internal/transcript"
)

// Store is a SQLite implementation of transcript.Store.
type Store struct {
	db *sql.DB
}

var _ transcript.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS completions (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			streaming INTEGER NOT NULL DEFAULT 0,
			prompt_tokens INTEGER,
			completion_tokens INTEGER,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			completion_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (completion_id) REFERENCES completions(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_completion ON messages(completion_id)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_model ON completions(model)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// CreateCompletion inserts the completion header row.
func (s *Store) CreateCompletion(ctx context.Context, c *transcript.Completion) error {
	c.CreatedAt = time.Now()

	metadata, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `INSERT INTO completions (id, model, streaming, prompt_tokens, completion_tokens, metadata, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		c.ID, c.Model, boolToInt(c.Streaming), c.PromptTokens, c.CompletionTokens, string(metadata), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create completion: %w", err)
	}

	return nil
}

// AddMessage appends one transcript message to a completion.
func (s *Store) AddMessage(ctx context.Context, completionID string, msg *transcript.Message) error {
	msg.CreatedAt = time.Now()

	query := `INSERT INTO messages (id, completion_id, seq, role, content, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID, completionID, msg.Seq, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}

	return nil
}

// GetCompletion loads one completion header row.
func (s *Store) GetCompletion(ctx context.Context, id string) (*transcript.Completion, error) {
	query := `SELECT id, model, streaming, prompt_tokens, completion_tokens, metadata, created_at
	          FROM completions WHERE id = ?`

	var c transcript.Completion
	var streaming int
	var metadata string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Model, &streaming, &c.PromptTokens, &c.CompletionTokens, &metadata, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("completion not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get completion: %w", err)
	}

	c.Streaming = streaming != 0
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &c, nil
}

// ListMessages returns a completion's transcript in insertion order.
func (s *Store) ListMessages(ctx context.Context, completionID string) ([]*transcript.Message, error) {
	query := `SELECT id, seq, role, content, created_at
	          FROM messages WHERE completion_id = ? ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, completionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*transcript.Message
	for rows.Next() {
		var msg transcript.Message
		if err := rows.Scan(&msg.ID, &msg.Seq, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
