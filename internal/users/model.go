package users

import (
	"time"

	"github.com/google/uuid"
)

// User is an anonymous account minted when a device first requests a
// session. There is no email or password; the id is the identity.
type User struct {
	ID              uuid.UUID `json:"id"`
	ProSubscription bool      `json:"pro_subscription"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DataDeletion reports what DELETE /users/me/data removed.
type DataDeletion struct {
	Insights        int64 `json:"insights"`
	Definitions     int64 `json:"definitions"`
	ChatMessages    int64 `json:"chat_messages"`
	StandaloneChats int64 `json:"standalone_chats"`
}
