package models

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Message struct {
	ID             uuid.UUID   `db:"id"`
	ConversationID uuid.UUID   `db:"conversation_id"`
	UserID         uuid.UUID   `db:"user_id"`
	Role           MessageRole `db:"role"`
	Content        string      `db:"content"`
	Metadata       string      `db:"metadata"` // JSON: confidence, follow-ups, etc.
	QueryHash      *string     `db:"query_hash"`
	CreatedAt      time.Time   `db:"created_at"`
}

// CachedAnswer is a previously computed response served from the query
// cache. It is a view over an assistant message, never a separate record.
type CachedAnswer struct {
	MessageID uuid.UUID
	QueryHash string
	Content   string
	Metadata  string
	CreatedAt time.Time
}
