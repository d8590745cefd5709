package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// Consumer drains verse.events.> into the audit_events table.
type Consumer struct {
	repo *Repository
	js   jetstream.JetStream
}

func NewConsumer(repo *Repository, js jetstream.JetStream) *Consumer {
	return &Consumer{repo: repo, js: js}
}

// Start runs the consume loop until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, StreamEvents, jetstream.ConsumerConfig{
		Durable:       "audit-persister",
		FilterSubject: "verse.events.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return err
	}

	slog.Info("event consumer started", "consumer", "audit-persister")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("event consumer: fetching", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleEvent(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handleEvent(ctx context.Context, msg jetstream.Msg) {
	entry := &AuditEntry{
		ID:        uuid.New(),
		Details:   json.RawMessage(msg.Data()),
		CreatedAt: time.Now().UTC(),
	}

	switch msg.Subject() {
	case SubjectLLMCall:
		var event LLMCallEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			slog.Error("event consumer: unmarshaling llm_call", "error", err)
			_ = msg.Nak()
			return
		}
		entry.UserID = event.UserID
		entry.EventType = TypeLLMCall
		if !event.Timestamp.IsZero() {
			entry.CreatedAt = event.Timestamp
		}
	case SubjectQuotaDenied:
		var event QuotaDeniedEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			slog.Error("event consumer: unmarshaling quota_denied", "error", err)
			_ = msg.Nak()
			return
		}
		entry.UserID = event.UserID
		entry.EventType = TypeQuotaDenied
		if !event.Timestamp.IsZero() {
			entry.CreatedAt = event.Timestamp
		}
	default:
		slog.Warn("event consumer: unknown subject, dropping", "subject", msg.Subject())
		_ = msg.Ack()
		return
	}

	if err := c.repo.Insert(ctx, entry); err != nil {
		slog.Error("event consumer: persisting event", "error", err, "subject", msg.Subject())
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
}
