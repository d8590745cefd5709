package definitions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verse-app/verse/internal/events"
	"github.com/verse-app/verse/internal/llm"
	"github.com/verse-app/verse/internal/metrics"
	"github.com/verse-app/verse/internal/usage"
)

type Service struct {
	repo      Repository
	llm       llm.Client
	usage     *usage.Service
	publisher *events.Publisher
}

func NewService(repo Repository, llmClient llm.Client, usageSvc *usage.Service, publisher *events.Publisher) *Service {
	return &Service{
		repo:      repo,
		llm:       llmClient,
		usage:     usageSvc,
		publisher: publisher,
	}
}

// Define returns the word study for a selection, from the store when
// another user already asked about the same word in the same verse.
// Words are matched case-insensitively by lowercasing before lookup.
func (s *Service) Define(ctx context.Context, userID uuid.UUID, isPro bool, word, reference, verseText string) (*Result, error) {
	word = strings.ToLower(strings.TrimSpace(word))

	existing, err := s.repo.GetByWord(ctx, word, reference, verseText)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if _, err := s.repo.LinkToUser(ctx, userID, existing.ID); err != nil {
			return nil, err
		}
		return &Result{Definition: existing, Cached: true}, nil
	}

	if _, err := s.usage.Reserve(ctx, userID, isPro); err != nil {
		if qe, ok := usage.AsQuotaExceeded(err); ok {
			s.publisher.QuotaDenied(ctx, events.QuotaDeniedEvent{
				UserID:       userID,
				Kind:         "definition",
				CurrentUsage: qe.CurrentUsage,
				Limit:        qe.Limit,
				Timestamp:    time.Now().UTC(),
			})
		}
		return nil, err
	}

	generated, err := s.llm.GenerateDefinition(ctx, word, reference, verseText)
	if err != nil {
		s.usage.Release(ctx, userID, isPro)
		metrics.LLMCallsTotal.WithLabelValues("definition", "error").Inc()
		s.publishCall(ctx, userID, "error", reference)
		return nil, fmt.Errorf("generating definition: %w", err)
	}
	metrics.LLMCallsTotal.WithLabelValues("definition", "ok").Inc()
	s.publishCall(ctx, userID, "ok", reference)

	def := &SavedDefinition{
		Word:             word,
		PassageReference: reference,
		VerseText:        verseText,
		Definition:       generated.Definition,
		BiblicalUsage:    generated.BiblicalUsage,
		OriginalLanguage: generated.OriginalLanguage,
	}
	if err := s.repo.Save(ctx, def); err != nil {
		return nil, err
	}
	if _, err := s.repo.LinkToUser(ctx, userID, def.ID); err != nil {
		return nil, err
	}

	return &Result{Definition: def}, nil
}

func (s *Service) publishCall(ctx context.Context, userID uuid.UUID, status, reference string) {
	s.publisher.LLMCall(ctx, events.LLMCallEvent{
		UserID:    userID,
		Kind:      "definition",
		Status:    status,
		Reference: reference,
		Timestamp: time.Now().UTC(),
	})
}

// List returns the user's saved definitions, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]SavedDefinition, error) {
	return s.repo.ListByUser(ctx, userID, 50)
}

// Clear removes the user's definition links and reports how many.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.ClearUser(ctx, userID)
}
