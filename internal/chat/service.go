// Package chat streams model conversations over SSE and stores their
// transcripts.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verse-app/verse/internal/events"
	"github.com/verse-app/verse/internal/insights"
	"github.com/verse-app/verse/internal/llm"
	"github.com/verse-app/verse/internal/metrics"
	"github.com/verse-app/verse/internal/sse"
	"github.com/verse-app/verse/internal/usage"
)

// historyWindow bounds how many stored messages feed the model as
// conversation context.
const historyWindow = 20

var (
	ErrInsightNotFound = errors.New("insight not found")
	ErrChatNotFound    = errors.New("chat not found")
)

// EventSink receives the stream events for one request. *sse.Encoder
// satisfies it.
type EventSink interface {
	Write(ev sse.Event) error
}

// InsightSource looks up an insight the user has saved. The insights
// service satisfies it.
type InsightSource interface {
	Get(ctx context.Context, userID uuid.UUID, insightID int64) (*insights.SavedInsight, error)
}

// Indexer embeds a stored message for semantic search. The search
// service satisfies it; a nil Indexer disables indexing.
type Indexer interface {
	IndexMessage(ctx context.Context, messageID int64, content string)
}

type Service struct {
	repo      Repository
	llm       llm.Client
	usage     *usage.Service
	insights  InsightSource
	indexer   Indexer
	publisher *events.Publisher
}

func NewService(repo Repository, llmClient llm.Client, usageSvc *usage.Service, insightSrc InsightSource, indexer Indexer, publisher *events.Publisher) *Service {
	return &Service{
		repo:      repo,
		llm:       llmClient,
		usage:     usageSvc,
		insights:  insightSrc,
		indexer:   indexer,
		publisher: publisher,
	}
}

// StreamInsightChat answers a follow-up question about an insight the
// user saved. Nothing is written to sink until the insight lookup and
// the quota reservation both succeed, so callers can still respond with
// a plain error body before the stream starts.
func (s *Service) StreamInsightChat(ctx context.Context, userID uuid.UUID, isPro bool, insightID int64, message string, sink EventSink) error {
	insight, err := s.insights.Get(ctx, userID, insightID)
	if err != nil {
		return err
	}
	if insight == nil {
		return ErrInsightNotFound
	}

	history, err := s.repo.ListInsightMessages(ctx, userID, insightID)
	if err != nil {
		return err
	}

	if err := s.reserve(ctx, userID, isPro); err != nil {
		return err
	}

	systemPrompt := llm.ChatSystemPrompt(insight.PassageReference, insight.PassageText, &llm.Insights{
		HistoricalContext:       insight.HistoricalContext,
		TheologicalSignificance: insight.TheologicalSignificance,
		PracticalApplication:    insight.PracticalApplication,
	})

	return s.stream(ctx, userID, isPro, insight.PassageReference, systemPrompt, history, message, sink, func(msg *Message) {
		msg.InsightID = &insightID
	}, nil)
}

// StreamStandaloneChat answers a message in a standalone conversation.
// When chatID is nil a new chat is created and announced to the client
// as the first stream event; reference and text anchor the new chat to
// a passage and are ignored for existing chats.
func (s *Service) StreamStandaloneChat(ctx context.Context, userID uuid.UUID, isPro bool, chatID *int64, reference, text, message string, sink EventSink) error {
	var (
		conv    *Chat
		history []Message
		created bool
		err     error
	)
	if chatID != nil {
		conv, err = s.repo.GetChat(ctx, userID, *chatID)
		if err != nil {
			return err
		}
		if conv == nil {
			return ErrChatNotFound
		}
		history, err = s.repo.ListChatMessages(ctx, userID, conv.ID)
		if err != nil {
			return err
		}
		if err := s.reserve(ctx, userID, isPro); err != nil {
			return err
		}
	} else {
		// Reserve before creating the row so a denied request leaves
		// no empty chat behind.
		if err := s.reserve(ctx, userID, isPro); err != nil {
			return err
		}
		conv = &Chat{UserID: userID}
		if reference != "" {
			conv.PassageReference = &reference
		}
		if text != "" {
			conv.PassageText = &text
		}
		if err := s.repo.CreateChat(ctx, conv); err != nil {
			s.usage.Release(ctx, userID, isPro)
			return err
		}
		created = true
	}

	var ref, txt string
	if conv.PassageReference != nil {
		ref = *conv.PassageReference
	}
	if conv.PassageText != nil {
		txt = *conv.PassageText
	}
	systemPrompt := llm.StandaloneChatSystemPrompt(ref, txt)

	var firstEvent *sse.Event
	if created {
		ev := sse.ChatID(conv.ID)
		firstEvent = &ev
	}
	id := conv.ID
	return s.stream(ctx, userID, isPro, ref, systemPrompt, history, message, sink, func(msg *Message) {
		msg.ChatID = &id
	}, firstEvent)
}

// reserve takes one quota slot for the user, publishing a denial event
// when the daily limit is hit.
func (s *Service) reserve(ctx context.Context, userID uuid.UUID, isPro bool) error {
	if _, err := s.usage.Reserve(ctx, userID, isPro); err != nil {
		if qe, ok := usage.AsQuotaExceeded(err); ok {
			s.publisher.QuotaDenied(ctx, events.QuotaDeniedEvent{
				UserID:       userID,
				Kind:         "chat",
				CurrentUsage: qe.CurrentUsage,
				Limit:        qe.Limit,
				Timestamp:    time.Now().UTC(),
			})
		}
		return err
	}
	return nil
}

// stream runs the shared persist and relay sequence. Callers have
// already reserved quota; attach tags each stored message with its
// conversation, and firstEvent, when set, is emitted before any token.
func (s *Service) stream(ctx context.Context, userID uuid.UUID, isPro bool, reference, systemPrompt string, history []Message, message string, sink EventSink, attach func(*Message), firstEvent *sse.Event) error {
	userMsg := &Message{UserID: userID, Role: RoleUser, Content: message}
	attach(userMsg)
	if err := s.repo.InsertMessage(ctx, userMsg); err != nil {
		s.usage.Release(ctx, userID, isPro)
		return err
	}
	s.index(ctx, userMsg)

	llmHistory := make([]llm.ChatMessage, 0, len(history)+1)
	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	for _, msg := range history[start:] {
		llmHistory = append(llmHistory, llm.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	llmHistory = append(llmHistory, llm.ChatMessage{Role: llm.RoleUser, Content: message})

	stream, err := s.llm.StreamChat(ctx, systemPrompt, llmHistory)
	if err != nil {
		s.usage.Release(ctx, userID, isPro)
		metrics.LLMCallsTotal.WithLabelValues("chat", "error").Inc()
		s.publishCall(ctx, userID, "error", reference)
		return fmt.Errorf("starting chat stream: %w", err)
	}
	defer stream.Close()

	metrics.SSEStreamsActive.Inc()
	defer metrics.SSEStreamsActive.Dec()

	if firstEvent != nil {
		if err := sink.Write(*firstEvent); err != nil {
			return err
		}
	}

	var reply strings.Builder
	for stream.Next() {
		token := stream.Token()
		reply.WriteString(token)
		metrics.LLMTokensStreamedTotal.Inc()
		if err := sink.Write(sse.Token(token)); err != nil {
			// Client went away mid-stream. The reservation stands; the
			// model call was made.
			return err
		}
	}

	if err := stream.Err(); err != nil {
		s.usage.Release(ctx, userID, isPro)
		metrics.LLMCallsTotal.WithLabelValues("chat", "error").Inc()
		s.publishCall(ctx, userID, "error", reference)
		slog.Error("chat stream interrupted", "user_id", userID, "error", err)
		return sink.Write(sse.Error("stream interrupted"))
	}

	assistantMsg := &Message{UserID: userID, Role: RoleAssistant, Content: reply.String()}
	attach(assistantMsg)
	if err := s.repo.InsertMessage(ctx, assistantMsg); err != nil {
		slog.Error("persisting assistant message", "user_id", userID, "error", err)
		return sink.Write(sse.Error("failed to save response"))
	}
	s.index(ctx, assistantMsg)

	metrics.LLMCallsTotal.WithLabelValues("chat", "ok").Inc()
	s.publishCall(ctx, userID, "ok", reference)
	return sink.Write(sse.Done(stream.StopReason()))
}

func (s *Service) index(ctx context.Context, msg *Message) {
	if s.indexer == nil {
		return
	}
	s.indexer.IndexMessage(ctx, msg.ID, msg.Content)
}

func (s *Service) publishCall(ctx context.Context, userID uuid.UUID, status, reference string) {
	s.publisher.LLMCall(ctx, events.LLMCallEvent{
		UserID:    userID,
		Kind:      "chat",
		Status:    status,
		Reference: reference,
		Timestamp: time.Now().UTC(),
	})
}

// ListChats returns the user's standalone chats, newest first.
func (s *Service) ListChats(ctx context.Context, userID uuid.UUID) ([]Chat, error) {
	return s.repo.ListChats(ctx, userID)
}

// ChatMessages returns the transcript of one standalone chat.
func (s *Service) ChatMessages(ctx context.Context, userID uuid.UUID, chatID int64) ([]Message, error) {
	conv, err := s.repo.GetChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrChatNotFound
	}
	return s.repo.ListChatMessages(ctx, userID, chatID)
}

// DeleteChat removes a standalone chat and its messages.
func (s *Service) DeleteChat(ctx context.Context, userID uuid.UUID, chatID int64) error {
	deleted, err := s.repo.DeleteChat(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrChatNotFound
	}
	return nil
}

// InsightMessages returns the conversation attached to an insight.
func (s *Service) InsightMessages(ctx context.Context, userID uuid.UUID, insightID int64) ([]Message, error) {
	insight, err := s.insights.Get(ctx, userID, insightID)
	if err != nil {
		return nil, err
	}
	if insight == nil {
		return nil, ErrInsightNotFound
	}
	return s.repo.ListInsightMessages(ctx, userID, insightID)
}

// ClearInsightMessages removes the conversation attached to an insight
// and reports how many messages were deleted.
func (s *Service) ClearInsightMessages(ctx context.Context, userID uuid.UUID, insightID int64) (int64, error) {
	return s.repo.ClearInsightMessages(ctx, userID, insightID)
}
