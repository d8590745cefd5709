package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// Config holds the model settings for the Anthropic-backed client.
type Config struct {
	APIKey              string
	Model               string
	MaxTokensInsights   int
	MaxTokensDefinition int
	MaxTokensChat       int
	RequestTimeout      time.Duration
}

// AnthropicClient implements Client against the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	cfg    Config
}

var _ Client = (*AnthropicClient)(nil)

func NewAnthropicClient(cfg Config) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		cfg:    cfg,
	}
}

func (c *AnthropicClient) GenerateInsights(ctx context.Context, passageReference, passageText string) (*Insights, error) {
	content, err := c.complete(ctx, insightsPrompt(passageReference, passageText), c.cfg.MaxTokensInsights)
	if err != nil {
		return nil, fmt.Errorf("generating insights for %s: %w", passageReference, err)
	}
	return parseInsights(content), nil
}

func (c *AnthropicClient) GenerateDefinition(ctx context.Context, word, passageReference, verseText string) (*Definition, error) {
	content, err := c.complete(ctx, definitionPrompt(word, passageReference, verseText), c.cfg.MaxTokensDefinition)
	if err != nil {
		return nil, fmt.Errorf("generating definition for %q: %w", word, err)
	}
	return parseDefinition(content), nil
}

func (c *AnthropicClient) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("model returned no text content")
	}
	return sb.String(), nil
}

// StreamChat opens a streaming completion for the conversation. The
// request timeout bounds the whole stream; Close releases it early.
func (c *AnthropicClient) StreamChat(ctx context.Context, systemPrompt string, history []ChatMessage) (TokenStream, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("chat history is empty")
	}

	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		default:
			return nil, fmt.Errorf("unknown chat role %q", m.Role)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	stream := c.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokensChat),
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:  messages,
	})
	return &anthropicStream{stream: stream, cancel: cancel}, nil
}

type anthropicStream struct {
	stream     *ssestream.Stream[anthropic.MessageStreamEventUnion]
	cancel     context.CancelFunc
	token      string
	stopReason string
	err        error
	closed     bool
}

func (s *anthropicStream) Next() bool {
	if s.closed || s.err != nil {
		return false
	}
	for s.stream.Next() {
		event := s.stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				s.token = delta.Text
				return true
			}
		case anthropic.MessageDeltaEvent:
			if ev.Delta.StopReason != "" {
				s.stopReason = string(ev.Delta.StopReason)
			}
		}
	}
	s.err = s.stream.Err()
	return false
}

func (s *anthropicStream) Token() string      { return s.token }
func (s *anthropicStream) StopReason() string { return s.stopReason }
func (s *anthropicStream) Err() error         { return s.err }

func (s *anthropicStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.stream.Close()
	s.cancel()
	return err
}
