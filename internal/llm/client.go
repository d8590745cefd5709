// Package llm wraps the language model behind a small domain interface:
// structured insight and definition generation, and token-streamed chat.
package llm

import (
	"context"
)

// Insights holds the three analysis sections generated for a passage.
type Insights struct {
	HistoricalContext       string
	TheologicalSignificance string
	PracticalApplication    string
}

// Definition holds the three sections of a word study.
type Definition struct {
	Definition       string
	BiblicalUsage    string
	OriginalLanguage string
}

// ChatMessage is one prior turn of a conversation.
type ChatMessage struct {
	Role    string // "user" or "assistant"
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TokenStream yields the model's response one text fragment at a time.
// Follow the usual iterator shape: Next until false, then check Err.
// StopReason is available once the stream has drained cleanly.
type TokenStream interface {
	Next() bool
	Token() string
	StopReason() string
	Err() error
	Close() error
}

// Client is the model provider abstraction used by the insight,
// definition and chat services.
type Client interface {
	GenerateInsights(ctx context.Context, passageReference, passageText string) (*Insights, error)
	GenerateDefinition(ctx context.Context, word, passageReference, verseText string) (*Definition, error)
	StreamChat(ctx context.Context, systemPrompt string, history []ChatMessage) (TokenStream, error)
}
