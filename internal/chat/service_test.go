package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verse-app/verse/internal/config"
	"github.com/verse-app/verse/internal/insights"
	"github.com/verse-app/verse/internal/llm"
	"github.com/verse-app/verse/internal/sse"
	"github.com/verse-app/verse/internal/usage"
)

type memoryRepo struct {
	chats      map[int64]*Chat
	messages   []*Message
	nextChatID int64
	nextMsgID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{chats: map[int64]*Chat{}}
}

func (r *memoryRepo) CreateChat(ctx context.Context, chat *Chat) error {
	r.nextChatID++
	chat.ID = r.nextChatID
	chat.CreatedAt = time.Now().UTC()
	r.chats[chat.ID] = chat
	return nil
}

func (r *memoryRepo) GetChat(ctx context.Context, userID uuid.UUID, chatID int64) (*Chat, error) {
	chat, ok := r.chats[chatID]
	if !ok || chat.UserID != userID {
		return nil, nil
	}
	return chat, nil
}

func (r *memoryRepo) ListChats(ctx context.Context, userID uuid.UUID) ([]Chat, error) {
	var out []Chat
	for _, chat := range r.chats {
		if chat.UserID == userID {
			out = append(out, *chat)
		}
	}
	return out, nil
}

func (r *memoryRepo) DeleteChat(ctx context.Context, userID uuid.UUID, chatID int64) (bool, error) {
	chat, ok := r.chats[chatID]
	if !ok || chat.UserID != userID {
		return false, nil
	}
	delete(r.chats, chatID)
	return true, nil
}

func (r *memoryRepo) InsertMessage(ctx context.Context, msg *Message) error {
	r.nextMsgID++
	msg.ID = r.nextMsgID
	msg.CreatedAt = time.Now().UTC()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *memoryRepo) ListChatMessages(ctx context.Context, userID uuid.UUID, chatID int64) ([]Message, error) {
	var out []Message
	for _, msg := range r.messages {
		if msg.UserID == userID && msg.ChatID != nil && *msg.ChatID == chatID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListInsightMessages(ctx context.Context, userID uuid.UUID, insightID int64) ([]Message, error) {
	var out []Message
	for _, msg := range r.messages {
		if msg.UserID == userID && msg.InsightID != nil && *msg.InsightID == insightID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (r *memoryRepo) ClearInsightMessages(ctx context.Context, userID uuid.UUID, insightID int64) (int64, error) {
	var kept []*Message
	var n int64
	for _, msg := range r.messages {
		if msg.UserID == userID && msg.InsightID != nil && *msg.InsightID == insightID {
			n++
			continue
		}
		kept = append(kept, msg)
	}
	r.messages = kept
	return n, nil
}

type usageRepo struct {
	counts map[string]int
}

func newUsageRepo() *usageRepo { return &usageRepo{counts: map[string]int{}} }

func (r *usageRepo) ReserveCall(ctx context.Context, userID uuid.UUID, day time.Time, limit int) (int, bool, error) {
	k := userID.String()
	if r.counts[k] >= limit {
		return r.counts[k], false, nil
	}
	r.counts[k]++
	return r.counts[k], true, nil
}

func (r *usageRepo) ReleaseCall(ctx context.Context, userID uuid.UUID, day time.Time) error {
	if r.counts[userID.String()] > 0 {
		r.counts[userID.String()]--
	}
	return nil
}

func (r *usageRepo) GetDay(ctx context.Context, userID uuid.UUID, day time.Time) (*usage.Record, error) {
	return &usage.Record{UserID: userID, LLMCalls: r.counts[userID.String()]}, nil
}

func (r *usageRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// fakeStream replays tokens and then either stops naturally or fails.
type fakeStream struct {
	tokens     []string
	stopReason string
	failAfter  int
	err        error
	pos        int
	closed     bool
}

func (s *fakeStream) Next() bool {
	if s.err != nil && s.pos >= s.failAfter {
		return false
	}
	if s.pos >= len(s.tokens) {
		return false
	}
	s.pos++
	return true
}

func (s *fakeStream) Token() string { return s.tokens[s.pos-1] }

func (s *fakeStream) StopReason() string { return s.stopReason }

func (s *fakeStream) Err() error {
	if s.err != nil && s.pos >= s.failAfter {
		return s.err
	}
	return nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

type fakeLLM struct {
	stream      *fakeStream
	startErr    error
	calls       int
	lastSystem  string
	lastHistory []llm.ChatMessage
}

func (f *fakeLLM) StreamChat(ctx context.Context, systemPrompt string, history []llm.ChatMessage) (llm.TokenStream, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastHistory = history
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.stream, nil
}

func (f *fakeLLM) GenerateInsights(ctx context.Context, reference, text string) (*llm.Insights, error) {
	panic("not used")
}

func (f *fakeLLM) GenerateDefinition(ctx context.Context, word, reference, verseText string) (*llm.Definition, error) {
	panic("not used")
}

type fakeInsights struct {
	byID map[int64]*insights.SavedInsight
}

func (f *fakeInsights) Get(ctx context.Context, userID uuid.UUID, insightID int64) (*insights.SavedInsight, error) {
	return f.byID[insightID], nil
}

// recordingSink captures everything the service emits.
type recordingSink struct {
	events []sse.Event
}

func (s *recordingSink) Write(ev sse.Event) error {
	s.events = append(s.events, ev)
	return nil
}

type fixture struct {
	svc      *Service
	repo     *memoryRepo
	uRepo    *usageRepo
	client   *fakeLLM
	insights *fakeInsights
}

func newFixture(limit int) *fixture {
	repo := newMemoryRepo()
	uRepo := newUsageRepo()
	client := &fakeLLM{stream: &fakeStream{
		tokens:     []string{"Hel", "lo", "!"},
		stopReason: "end_turn",
	}}
	src := &fakeInsights{byID: map[int64]*insights.SavedInsight{}}
	usageSvc := usage.NewService(uRepo, config.UsageConfig{DailyLimit: limit, RetentionDays: 30})
	return &fixture{
		svc:      NewService(repo, client, usageSvc, src, nil, nil),
		repo:     repo,
		uRepo:    uRepo,
		client:   client,
		insights: src,
	}
}

func (f *fixture) addInsight(id int64) {
	f.insights.byID[id] = &insights.SavedInsight{
		ID:                      id,
		PassageReference:        "John 3:16",
		PassageText:             "For God so loved the world",
		HistoricalContext:       "history",
		TheologicalSignificance: "theology",
		PracticalApplication:    "practice",
	}
}

func TestStreamStandaloneChat_NewChat(t *testing.T) {
	f := newFixture(10)
	userID := uuid.New()
	sink := &recordingSink{}

	err := f.svc.StreamStandaloneChat(context.Background(), userID, false, nil, "John 3:16", "For God so loved", "What does this mean?", sink)
	require.NoError(t, err)

	require.NotEmpty(t, sink.events)
	assert.Equal(t, sse.EventChatID, sink.events[0].Type, "new chat announced before any token")
	assert.Equal(t, int64(1), sink.events[0].ChatID)

	last := sink.events[len(sink.events)-1]
	assert.Equal(t, sse.EventDone, last.Type)
	assert.Equal(t, "end_turn", last.StopReason)

	var tokens string
	for _, ev := range sink.events {
		if ev.Type == sse.EventToken {
			tokens += ev.Token
		}
	}
	assert.Equal(t, "Hello!", tokens)

	require.Len(t, f.repo.messages, 2)
	assert.Equal(t, RoleUser, f.repo.messages[0].Role)
	assert.Equal(t, "What does this mean?", f.repo.messages[0].Content)
	assert.Equal(t, RoleAssistant, f.repo.messages[1].Role)
	assert.Equal(t, "Hello!", f.repo.messages[1].Content)
	require.NotNil(t, f.repo.messages[1].ChatID)
	assert.Equal(t, int64(1), *f.repo.messages[1].ChatID)

	assert.Equal(t, 1, f.uRepo.counts[userID.String()], "one reservation consumed")
	assert.True(t, f.client.stream.closed)
}

func TestStreamStandaloneChat_ExistingChatNoAnnouncement(t *testing.T) {
	f := newFixture(10)
	userID := uuid.New()

	sink := &recordingSink{}
	err := f.svc.StreamStandaloneChat(context.Background(), userID, false, nil, "", "", "first", sink)
	require.NoError(t, err)
	chatID := sink.events[0].ChatID

	f.client.stream = &fakeStream{tokens: []string{"again"}, stopReason: "end_turn"}
	sink = &recordingSink{}
	err = f.svc.StreamStandaloneChat(context.Background(), userID, false, &chatID, "", "", "second", sink)
	require.NoError(t, err)

	for _, ev := range sink.events {
		assert.NotEqual(t, sse.EventChatID, ev.Type, "existing chats are not re-announced")
	}

	// The stored exchange feeds the model as history.
	require.Len(t, f.client.lastHistory, 3)
	assert.Equal(t, "first", f.client.lastHistory[0].Content)
	assert.Equal(t, llm.RoleAssistant, f.client.lastHistory[1].Role)
	assert.Equal(t, "second", f.client.lastHistory[2].Content)
}

func TestStreamStandaloneChat_UnknownChat(t *testing.T) {
	f := newFixture(10)
	sink := &recordingSink{}
	bogus := int64(99)

	err := f.svc.StreamStandaloneChat(context.Background(), uuid.New(), false, &bogus, "", "", "hi", sink)
	assert.ErrorIs(t, err, ErrChatNotFound)
	assert.Empty(t, sink.events, "nothing streamed before validation")
}

func TestStreamStandaloneChat_OtherUsersChatIsHidden(t *testing.T) {
	f := newFixture(10)
	owner := uuid.New()
	intruder := uuid.New()

	sink := &recordingSink{}
	err := f.svc.StreamStandaloneChat(context.Background(), owner, false, nil, "", "", "mine", sink)
	require.NoError(t, err)
	chatID := sink.events[0].ChatID

	err = f.svc.StreamStandaloneChat(context.Background(), intruder, false, &chatID, "", "", "yours?", &recordingSink{})
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestStreamInsightChat(t *testing.T) {
	f := newFixture(10)
	f.addInsight(7)
	userID := uuid.New()
	sink := &recordingSink{}

	err := f.svc.StreamInsightChat(context.Background(), userID, false, 7, "Tell me more", sink)
	require.NoError(t, err)

	assert.Equal(t, sse.EventToken, sink.events[0].Type, "no chat_id event for insight chats")
	assert.Equal(t, sse.EventDone, sink.events[len(sink.events)-1].Type)

	assert.Contains(t, f.client.lastSystem, "John 3:16")
	assert.Contains(t, f.client.lastSystem, "history")

	require.Len(t, f.repo.messages, 2)
	require.NotNil(t, f.repo.messages[0].InsightID)
	assert.Equal(t, int64(7), *f.repo.messages[0].InsightID)
	assert.Nil(t, f.repo.messages[0].ChatID)
}

func TestStreamInsightChat_UnknownInsight(t *testing.T) {
	f := newFixture(10)
	sink := &recordingSink{}

	err := f.svc.StreamInsightChat(context.Background(), uuid.New(), false, 404, "hi", sink)
	assert.ErrorIs(t, err, ErrInsightNotFound)
	assert.Empty(t, sink.events)
}

func TestStream_QuotaDenied(t *testing.T) {
	f := newFixture(1)
	userID := uuid.New()

	err := f.svc.StreamStandaloneChat(context.Background(), userID, false, nil, "", "", "one", &recordingSink{})
	require.NoError(t, err)

	sink := &recordingSink{}
	err = f.svc.StreamStandaloneChat(context.Background(), userID, false, nil, "", "", "two", sink)
	require.Error(t, err)

	_, ok := usage.AsQuotaExceeded(err)
	assert.True(t, ok)
	assert.Empty(t, sink.events, "denial happens before the handshake")

	chats, err := f.svc.ListChats(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, chats, 1, "a denied request must not leave an empty chat behind")
}

func TestStream_UpstreamFailureEmitsErrorAndReleases(t *testing.T) {
	f := newFixture(5)
	f.client.stream = &fakeStream{
		tokens:    []string{"par", "tial"},
		failAfter: 2,
		err:       assert.AnError,
	}
	userID := uuid.New()
	sink := &recordingSink{}

	err := f.svc.StreamStandaloneChat(context.Background(), userID, false, nil, "", "", "hi", sink)
	require.NoError(t, err, "mid-stream failures are reported on the wire")

	last := sink.events[len(sink.events)-1]
	assert.Equal(t, sse.EventError, last.Type)

	require.Len(t, f.repo.messages, 1, "assistant message must not be persisted")
	assert.Equal(t, RoleUser, f.repo.messages[0].Role)
	assert.Equal(t, 0, f.uRepo.counts[userID.String()], "failed stream must not consume quota")
}

func TestStream_StartFailureReleasesBeforeHandshake(t *testing.T) {
	f := newFixture(5)
	f.client.startErr = assert.AnError
	userID := uuid.New()
	sink := &recordingSink{}

	err := f.svc.StreamStandaloneChat(context.Background(), userID, false, nil, "", "", "hi", sink)
	require.Error(t, err)
	assert.Empty(t, sink.events)
	assert.Equal(t, 0, f.uRepo.counts[userID.String()])
}

func TestStream_HistoryWindow(t *testing.T) {
	f := newFixture(100)
	userID := uuid.New()
	chatID := int64(1)
	require.NoError(t, f.repo.CreateChat(context.Background(), &Chat{UserID: userID}))

	for i := 0; i < 30; i++ {
		require.NoError(t, f.repo.InsertMessage(context.Background(), &Message{
			UserID: userID, ChatID: &chatID, Role: RoleUser, Content: fmt.Sprintf("msg %d", i),
		}))
	}

	err := f.svc.StreamStandaloneChat(context.Background(), userID, false, &chatID, "", "", "latest", &recordingSink{})
	require.NoError(t, err)

	require.Len(t, f.client.lastHistory, historyWindow+1)
	assert.Equal(t, "msg 10", f.client.lastHistory[0].Content, "oldest messages fall out of the window")
	assert.Equal(t, "latest", f.client.lastHistory[historyWindow].Content)
}

func TestStream_ProUserBypassesQuota(t *testing.T) {
	f := newFixture(1)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		f.client.stream = &fakeStream{tokens: []string{"ok"}, stopReason: "end_turn"}
		err := f.svc.StreamStandaloneChat(context.Background(), userID, true, nil, "", "", "hi", &recordingSink{})
		require.NoError(t, err)
	}
	assert.Equal(t, 0, f.uRepo.counts[userID.String()])
}

func TestChatMessages_Ownership(t *testing.T) {
	f := newFixture(10)
	owner := uuid.New()

	sink := &recordingSink{}
	require.NoError(t, f.svc.StreamStandaloneChat(context.Background(), owner, false, nil, "", "", "hi", sink))
	chatID := sink.events[0].ChatID

	messages, err := f.svc.ChatMessages(context.Background(), owner, chatID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	_, err = f.svc.ChatMessages(context.Background(), uuid.New(), chatID)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestDeleteChat(t *testing.T) {
	f := newFixture(10)
	userID := uuid.New()

	sink := &recordingSink{}
	require.NoError(t, f.svc.StreamStandaloneChat(context.Background(), userID, false, nil, "", "", "hi", sink))
	chatID := sink.events[0].ChatID

	require.NoError(t, f.svc.DeleteChat(context.Background(), userID, chatID))
	assert.ErrorIs(t, f.svc.DeleteChat(context.Background(), userID, chatID), ErrChatNotFound)
}

func TestClearInsightMessages(t *testing.T) {
	f := newFixture(10)
	f.addInsight(3)
	userID := uuid.New()

	require.NoError(t, f.svc.StreamInsightChat(context.Background(), userID, false, 3, "hi", &recordingSink{}))

	deleted, err := f.svc.ClearInsightMessages(context.Background(), userID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	messages, err := f.svc.InsightMessages(context.Background(), userID, 3)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
