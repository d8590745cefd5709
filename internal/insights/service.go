package insights

import (
	"context"
	"fmt"
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

// Generate returns insights for a passage. A store hit is linked to the
// user and returned as cached without touching quota or the model. A
// miss reserves quota first and returns the reservation if the model
// call fails.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, isPro bool, reference, text string) (*Result, error) {
	existing, err := s.repo.GetByPassage(ctx, reference, text)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if _, err := s.repo.LinkToUser(ctx, userID, existing.ID); err != nil {
			return nil, err
		}
		return &Result{Insight: existing, Cached: true}, nil
	}

	if _, err := s.usage.Reserve(ctx, userID, isPro); err != nil {
		if qe, ok := usage.AsQuotaExceeded(err); ok {
			s.publisher.QuotaDenied(ctx, events.QuotaDeniedEvent{
				UserID:       userID,
				Kind:         "insights",
				CurrentUsage: qe.CurrentUsage,
				Limit:        qe.Limit,
				Timestamp:    time.Now().UTC(),
			})
		}
		return nil, err
	}

	generated, err := s.llm.GenerateInsights(ctx, reference, text)
	if err != nil {
		s.usage.Release(ctx, userID, isPro)
		metrics.LLMCallsTotal.WithLabelValues("insights", "error").Inc()
		s.publishCall(ctx, userID, "error", reference)
		return nil, fmt.Errorf("generating insights: %w", err)
	}
	metrics.LLMCallsTotal.WithLabelValues("insights", "ok").Inc()
	s.publishCall(ctx, userID, "ok", reference)

	insight := &SavedInsight{
		PassageReference:        reference,
		PassageText:             text,
		HistoricalContext:       generated.HistoricalContext,
		TheologicalSignificance: generated.TheologicalSignificance,
		PracticalApplication:    generated.PracticalApplication,
	}
	if err := s.repo.Save(ctx, insight); err != nil {
		return nil, err
	}
	if _, err := s.repo.LinkToUser(ctx, userID, insight.ID); err != nil {
		return nil, err
	}

	return &Result{Insight: insight}, nil
}

func (s *Service) publishCall(ctx context.Context, userID uuid.UUID, status, reference string) {
	s.publisher.LLMCall(ctx, events.LLMCallEvent{
		UserID:    userID,
		Kind:      "insights",
		Status:    status,
		Reference: reference,
		Timestamp: time.Now().UTC(),
	})
}

// List returns the user's saved insights, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]SavedInsight, error) {
	return s.repo.ListByUser(ctx, userID, 50)
}

// Get returns one insight by id if the user is linked to it.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, insightID int64) (*SavedInsight, error) {
	return s.repo.GetByIDForUser(ctx, userID, insightID)
}

// Clear removes the user's insight links and reports how many.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.ClearUser(ctx, userID)
}
