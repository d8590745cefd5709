// Package insights generates and stores passage study insights.
package insights

import "time"

// SavedInsight is one generated analysis, shared across every user who
// asked about the same passage text. The (passage_reference,
// passage_text) pair is unique in the store; users attach to existing
// rows instead of regenerating them.
type SavedInsight struct {
	ID                      int64     `json:"id"`
	PassageReference        string    `json:"passage_reference"`
	PassageText             string    `json:"passage_text"`
	HistoricalContext       string    `json:"historical_context"`
	TheologicalSignificance string    `json:"theological_significance"`
	PracticalApplication    string    `json:"practical_application"`
	CreatedAt               time.Time `json:"created_at"`
}

// Result is what a generate request returns. Cached reports whether the
// insight was served from the store without a model call.
type Result struct {
	Insight *SavedInsight
	Cached  bool
}
