package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chris/scribe/internal/llm"
	"github.com/google/uuid"
)

var ErrConversationNotFound = errors.New("conversation not found")

// CreateConversation starts a new conversation and returns its ID.
func (d *DB) CreateConversation(title string) (string, error) {
	id := uuid.NewString()
	if _, err := d.conn.Exec("INSERT INTO conversations (id, title) VALUES (?, ?)", id, title); err != nil {
		return "", fmt.Errorf("creating conversation: %w", err)
	}
	return id, nil
}

// AppendMessages adds messages to the end of a conversation.
func (d *DB) AppendMessages(conversationID string, messages []llm.Message) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRow("SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE conversation_id = ?", conversationID).Scan(&next)
	if err != nil {
		return fmt.Errorf("reading sequence: %w", err)
	}

	for i, m := range messages {
		var toolCalls any
		if len(m.ToolCalls) > 0 {
			b, err := json.Marshal(m.ToolCalls)
			if err != nil {
				return fmt.Errorf("encoding tool calls: %w", err)
			}
			toolCalls = string(b)
		}
		_, err := tx.Exec(
			"INSERT INTO messages (conversation_id, seq, role, content, tool_calls, tool_call_id) VALUES (?, ?, ?, ?, ?, ?)",
			conversationID, next+i, m.Role, m.Content, toolCalls, nullStr(m.ToolCallID),
		)
		if err != nil {
			return fmt.Errorf("appending message: %w", err)
		}
	}

	res, err := tx.Exec("UPDATE conversations SET updated_at = datetime('now') WHERE id = ?", conversationID)
	if err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	return tx.Commit()
}

// LoadMessages returns a conversation's messages in order.
func (d *DB) LoadMessages(conversationID string) ([]llm.Message, error) {
	var exists int
	err := d.conn.QueryRow("SELECT 1 FROM conversations WHERE id = ?", conversationID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("finding conversation: %w", err)
	}

	rows, err := d.conn.Query(
		"SELECT role, content, COALESCE(tool_calls,''), COALESCE(tool_call_id,'') FROM messages WHERE conversation_id = ? ORDER BY seq ASC",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	defer rows.Close()

	var out []llm.Message
	for rows.Next() {
		var m llm.Message
		var toolCalls string
		if err := rows.Scan(&m.Role, &m.Content, &toolCalls, &m.ToolCallID); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if toolCalls != "" {
			if err := json.Unmarshal([]byte(toolCalls), &m.ToolCalls); err != nil {
				return nil, fmt.Errorf("decoding tool calls: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListConversations returns the most recently updated conversations first.
func (d *DB) ListConversations(limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(`
		SELECT c.id, c.title, COUNT(m.id), c.created_at, c.updated_at
		FROM conversations c LEFT JOIN messages m ON m.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC, c.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.Messages, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
