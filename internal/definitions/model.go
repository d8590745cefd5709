// Package definitions generates and stores biblical word studies.
package definitions

import "time"

// SavedDefinition is one word study, keyed by the word and the verse it
// was selected in. The (word, passage_reference, verse_text) triple is
// unique in the store so the same selection never regenerates.
type SavedDefinition struct {
	ID               int64     `json:"id"`
	Word             string    `json:"word"`
	PassageReference string    `json:"passage_reference"`
	VerseText        string    `json:"verse_text"`
	Definition       string    `json:"definition"`
	BiblicalUsage    string    `json:"biblical_usage"`
	OriginalLanguage string    `json:"original_language"`
	CreatedAt        time.Time `json:"created_at"`
}

// Result is a lookup outcome; Cached means no model call happened.
type Result struct {
	Definition *SavedDefinition
	Cached     bool
}
