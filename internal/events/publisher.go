package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher emits metered-call events. A nil *Publisher is valid and
// drops everything, so callers never have to branch on whether NATS is
// configured. Publish failures are logged and swallowed; an audit gap
// must not fail the user's request.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

func (p *Publisher) LLMCall(ctx context.Context, event LLMCallEvent) {
	p.publish(ctx, SubjectLLMCall, event)
}

func (p *Publisher) QuotaDenied(ctx context.Context, event QuotaDeniedEvent) {
	p.publish(ctx, SubjectQuotaDenied, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) {
	if p == nil {
		return
	}
	if err := p.tryPublish(ctx, subject, data); err != nil {
		slog.Warn("publishing event", "subject", subject, "error", err)
	}
}

func (p *Publisher) tryPublish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
