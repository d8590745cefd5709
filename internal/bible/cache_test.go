package bible

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	verses []Verse
	err    error
	calls  int
}

func (f *countingFetcher) FetchChapter(ctx context.Context, book string, chapter int, translation string) ([]Verse, error) {
	f.calls++
	return f.verses, f.err
}

func setupCache(t *testing.T, upstream ChapterFetcher) (*CachedFetcher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCachedFetcher(upstream, client, time.Hour), mr
}

func TestCachedFetcher_SecondFetchServedFromCache(t *testing.T) {
	upstream := &countingFetcher{verses: []Verse{
		{Book: "John", Chapter: 3, Verse: 16, Text: "For God so loved the world", Translation: "WEB"},
	}}
	cache, _ := setupCache(t, upstream)

	first, err := cache.FetchChapter(context.Background(), "John", 3, "WEB")
	require.NoError(t, err)
	second, err := cache.FetchChapter(context.Background(), "John", 3, "WEB")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, upstream.calls)
}

func TestCachedFetcher_TranslationsCachedSeparately(t *testing.T) {
	upstream := &countingFetcher{verses: []Verse{{Book: "John", Chapter: 3, Verse: 16, Text: "x"}}}
	cache, _ := setupCache(t, upstream)

	_, err := cache.FetchChapter(context.Background(), "John", 3, "WEB")
	require.NoError(t, err)
	_, err = cache.FetchChapter(context.Background(), "John", 3, "KJV")
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.calls)
}

func TestCachedFetcher_EmptyResultNotCached(t *testing.T) {
	upstream := &countingFetcher{}
	cache, _ := setupCache(t, upstream)

	verses, err := cache.FetchChapter(context.Background(), "John", 99, "WEB")
	require.NoError(t, err)
	assert.Nil(t, verses)

	_, err = cache.FetchChapter(context.Background(), "John", 99, "WEB")
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}

func TestCachedFetcher_EntryExpires(t *testing.T) {
	upstream := &countingFetcher{verses: []Verse{{Book: "John", Chapter: 3, Verse: 16, Text: "x"}}}
	cache, mr := setupCache(t, upstream)

	_, err := cache.FetchChapter(context.Background(), "John", 3, "WEB")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = cache.FetchChapter(context.Background(), "John", 3, "WEB")
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}

func TestCachedFetcher_RedisDownFallsThrough(t *testing.T) {
	upstream := &countingFetcher{verses: []Verse{{Book: "John", Chapter: 3, Verse: 16, Text: "x"}}}
	cache, mr := setupCache(t, upstream)
	mr.Close()

	verses, err := cache.FetchChapter(context.Background(), "John", 3, "WEB")
	require.NoError(t, err)
	assert.Len(t, verses, 1)
}
