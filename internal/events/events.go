// Package events publishes metered-call events to NATS JetStream and
// persists them into the audit_events table. The whole package is
// optional: with no NATS configured the publisher is nil and every
// publish is a no-op.
package events

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout bounds each batch fetch in the consumer loop.
const FetchTimeout = 2 * time.Second

const (
	StreamEvents = "VERSE_EVENTS"

	SubjectLLMCall     = "verse.events.llm_call"
	SubjectQuotaDenied = "verse.events.quota_denied"
)

// Event types stored in audit_events.
const (
	TypeLLMCall     = "llm_call"
	TypeQuotaDenied = "quota_denied"
)

// LLMCallEvent records one metered model call, successful or not.
type LLMCallEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Kind      string    `json:"kind"`   // insights, definition, chat
	Status    string    `json:"status"` // ok, error
	Reference string    `json:"reference,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// QuotaDeniedEvent records a request turned away at the daily limit.
type QuotaDeniedEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	Kind         string    `json:"kind"`
	CurrentUsage int       `json:"current_usage"`
	Limit        int       `json:"limit"`
	Timestamp    time.Time `json:"timestamp"`
}
