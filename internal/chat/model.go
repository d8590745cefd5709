package chat

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat is a standalone conversation, optionally anchored to a passage.
type Chat struct {
	ID               int64     `json:"id"`
	UserID           uuid.UUID `json:"-"`
	PassageReference *string   `json:"passage_reference,omitempty"`
	PassageText      *string   `json:"passage_text,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Message belongs to exactly one of a standalone chat or an insight
// conversation.
type Message struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"-"`
	ChatID    *int64    `json:"chat_id,omitempty"`
	InsightID *int64    `json:"insight_id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
