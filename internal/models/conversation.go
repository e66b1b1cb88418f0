package models

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ConversationSource attaches a data source to a conversation. The
// primary source provides the default context and the conversation title.
type ConversationSource struct {
	ConversationID uuid.UUID `db:"conversation_id"`
	DataSourceID   uuid.UUID `db:"data_source_id"`
	IsPrimary      bool      `db:"is_primary"`
	CreatedAt      time.Time `db:"created_at"`
}
