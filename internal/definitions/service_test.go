package definitions

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verse-app/verse/internal/config"
	"github.com/verse-app/verse/internal/llm"
	"github.com/verse-app/verse/internal/usage"
)

type memoryRepo struct {
	defs   map[string]*SavedDefinition
	links  map[string]bool
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{defs: map[string]*SavedDefinition{}, links: map[string]bool{}}
}

func wordKey(word, reference, verseText string) string {
	return word + "|" + reference + "|" + verseText
}

func (r *memoryRepo) GetByWord(ctx context.Context, word, reference, verseText string) (*SavedDefinition, error) {
	def, ok := r.defs[wordKey(word, reference, verseText)]
	if !ok {
		return nil, nil
	}
	return def, nil
}

func (r *memoryRepo) Save(ctx context.Context, def *SavedDefinition) error {
	k := wordKey(def.Word, def.PassageReference, def.VerseText)
	if existing, ok := r.defs[k]; ok {
		def.ID = existing.ID
		return nil
	}
	r.nextID++
	def.ID = r.nextID
	def.CreatedAt = time.Now().UTC()
	r.defs[k] = def
	return nil
}

func linkKey(userID uuid.UUID, definitionID int64) string {
	return fmt.Sprintf("%s|%d", userID, definitionID)
}

func (r *memoryRepo) LinkToUser(ctx context.Context, userID uuid.UUID, definitionID int64) (bool, error) {
	k := linkKey(userID, definitionID)
	if r.links[k] {
		return false, nil
	}
	r.links[k] = true
	return true, nil
}

func (r *memoryRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]SavedDefinition, error) {
	var out []SavedDefinition
	for _, def := range r.defs {
		if r.links[linkKey(userID, def.ID)] {
			out = append(out, *def)
		}
	}
	return out, nil
}

func (r *memoryRepo) ClearUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for k := range r.links {
		if strings.HasPrefix(k, userID.String()+"|") {
			delete(r.links, k)
			n++
		}
	}
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

type fakeLLM struct {
	definition *llm.Definition
	err        error
	calls      int
	lastWord   string
}

func (f *fakeLLM) GenerateDefinition(ctx context.Context, word, reference, verseText string) (*llm.Definition, error) {
	f.calls++
	f.lastWord = word
	if f.err != nil {
		return nil, f.err
	}
	return f.definition, nil
}

func (f *fakeLLM) GenerateInsights(ctx context.Context, reference, text string) (*llm.Insights, error) {
	panic("not used")
}

func (f *fakeLLM) StreamChat(ctx context.Context, systemPrompt string, history []llm.ChatMessage) (llm.TokenStream, error) {
	panic("not used")
}

func newTestService(limit int) (*Service, *memoryRepo, *usageRepo, *fakeLLM) {
	repo := newMemoryRepo()
	uRepo := newUsageRepo()
	client := &fakeLLM{definition: &llm.Definition{
		Definition:       "unmerited favor",
		BiblicalUsage:    "usage",
		OriginalLanguage: "charis",
	}}
	usageSvc := usage.NewService(uRepo, config.UsageConfig{DailyLimit: limit, RetentionDays: 30})
	return NewService(repo, client, usageSvc, nil), repo, uRepo, client
}

func TestDefine_FreshWord(t *testing.T) {
	svc, repo, uRepo, client := newTestService(10)
	userID := uuid.New()

	result, err := svc.Define(context.Background(), userID, false, "grace", "Ephesians 2:8", "For by grace you have been saved")
	require.NoError(t, err)

	assert.False(t, result.Cached)
	assert.Equal(t, "grace", result.Definition.Word)
	assert.Equal(t, "unmerited favor", result.Definition.Definition)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 1, uRepo.counts[userID.String()], "one reservation consumed")
	assert.Len(t, repo.defs, 1)
}

func TestDefine_WordsMatchCaseInsensitively(t *testing.T) {
	svc, _, uRepo, client := newTestService(10)
	first := uuid.New()
	second := uuid.New()

	_, err := svc.Define(context.Background(), first, false, "Grace", "Ephesians 2:8", "For by grace")
	require.NoError(t, err)
	assert.Equal(t, "grace", client.lastWord, "word lowercased before the model sees it")

	result, err := svc.Define(context.Background(), second, false, "  GRACE ", "Ephesians 2:8", "For by grace")
	require.NoError(t, err)

	assert.True(t, result.Cached)
	assert.Equal(t, 1, client.calls, "second request must not hit the model")
	assert.Equal(t, 0, uRepo.counts[second.String()], "cached hit must not consume quota")
}

func TestDefine_DifferentVerseIsNotCached(t *testing.T) {
	svc, _, _, client := newTestService(10)
	userID := uuid.New()

	_, err := svc.Define(context.Background(), userID, false, "grace", "Ephesians 2:8", "verse one")
	require.NoError(t, err)
	result, err := svc.Define(context.Background(), userID, false, "grace", "Romans 3:24", "verse two")
	require.NoError(t, err)

	assert.False(t, result.Cached)
	assert.Equal(t, 2, client.calls)
}

func TestDefine_QuotaDenied(t *testing.T) {
	svc, _, _, _ := newTestService(1)
	userID := uuid.New()

	_, err := svc.Define(context.Background(), userID, false, "grace", "Ephesians 2:8", "text a")
	require.NoError(t, err)

	_, err = svc.Define(context.Background(), userID, false, "faith", "Hebrews 11:1", "text b")
	require.Error(t, err)

	qe, ok := usage.AsQuotaExceeded(err)
	require.True(t, ok)
	assert.Equal(t, 1, qe.Limit)
}

func TestDefine_ModelFailureReleasesReservation(t *testing.T) {
	svc, repo, uRepo, client := newTestService(1)
	client.err = assert.AnError
	userID := uuid.New()

	_, err := svc.Define(context.Background(), userID, false, "grace", "Ephesians 2:8", "text")
	require.Error(t, err)
	_, isQuota := usage.AsQuotaExceeded(err)
	assert.False(t, isQuota)

	assert.Equal(t, 0, uRepo.counts[userID.String()], "failed call must not consume quota")
	assert.Empty(t, repo.defs)

	client.err = nil
	result, err := svc.Define(context.Background(), userID, false, "grace", "Ephesians 2:8", "text")
	require.NoError(t, err)
	assert.False(t, result.Cached)
}

func TestDefine_ProUserUnlimited(t *testing.T) {
	svc, _, uRepo, _ := newTestService(1)
	userID := uuid.New()

	words := []string{"grace", "faith", "hope", "love", "peace"}
	for _, w := range words {
		_, err := svc.Define(context.Background(), userID, true, w, "Ephesians 2:8", "text")
		require.NoError(t, err)
	}
	assert.Equal(t, 0, uRepo.counts[userID.String()])
}

func TestListAndClear(t *testing.T) {
	svc, _, _, _ := newTestService(10)
	userID := uuid.New()

	_, err := svc.Define(context.Background(), userID, false, "grace", "Ephesians 2:8", "text")
	require.NoError(t, err)

	list, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	deleted, err := svc.Clear(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	list, err = svc.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
