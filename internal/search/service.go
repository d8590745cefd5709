package search

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

const (
	searchLimit         = 10
	similarityThreshold = 0.3
)

// ErrNotConfigured means no embedding client is available.
var ErrNotConfigured = errors.New("semantic search is not configured")

type Service struct {
	repo     Repository
	embedder Embedder
}

// NewService wires the search service. embedder may be nil, which
// disables indexing and makes Search return ErrNotConfigured.
func NewService(repo Repository, embedder Embedder) *Service {
	return &Service{repo: repo, embedder: embedder}
}

// Enabled reports whether an embedding client is configured.
func (s *Service) Enabled() bool {
	return s.embedder != nil
}

// IndexMessage embeds a stored message so it becomes searchable. It is
// best effort: failures are logged and the message simply stays out of
// the search index.
func (s *Service) IndexMessage(ctx context.Context, messageID int64, content string) {
	if s.embedder == nil {
		return
	}
	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		slog.Warn("embedding chat message", "message_id", messageID, "error", err)
		return
	}
	if err := s.repo.UpdateEmbedding(ctx, messageID, embedding); err != nil {
		slog.Warn("storing chat message embedding", "message_id", messageID, "error", err)
	}
}

// Search returns the user's stored messages closest to the query.
func (s *Service) Search(ctx context.Context, userID uuid.UUID, query string) ([]Match, error) {
	if s.embedder == nil {
		return nil, ErrNotConfigured
	}
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.repo.SearchMessages(ctx, userID, embedding, searchLimit, similarityThreshold)
}
