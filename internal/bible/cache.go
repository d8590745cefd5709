package bible

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verse-app/verse/internal/metrics"
)

// CachedFetcher layers a Redis chapter cache over an upstream fetcher.
// Cache failures degrade to upstream fetches, they never fail a lookup.
type CachedFetcher struct {
	upstream ChapterFetcher
	client   *redis.Client
	ttl      time.Duration
}

func NewCachedFetcher(upstream ChapterFetcher, client *redis.Client, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{upstream: upstream, client: client, ttl: ttl}
}

func chapterKey(book string, chapter int, translation string) string {
	return fmt.Sprintf("bible:chapter:%s:%s:%d", translation, normalizeBook(book), chapter)
}

func (f *CachedFetcher) FetchChapter(ctx context.Context, book string, chapter int, translation string) ([]Verse, error) {
	key := chapterKey(book, chapter, translation)

	cached, err := f.client.Get(ctx, key).Result()
	if err == nil {
		var verses []Verse
		if err := json.Unmarshal([]byte(cached), &verses); err == nil {
			metrics.BibleFetchesTotal.WithLabelValues("cache").Inc()
			return verses, nil
		}
		// Unreadable entry, fall through and refresh it.
		slog.Warn("bible cache entry unreadable, refetching", "key", key)
	} else if err != redis.Nil {
		slog.Warn("bible cache read failed", "key", key, "error", err)
	}

	verses, err := f.upstream.FetchChapter(ctx, book, chapter, translation)
	if err != nil {
		return nil, err
	}
	metrics.BibleFetchesTotal.WithLabelValues("upstream").Inc()

	if len(verses) > 0 {
		data, err := json.Marshal(verses)
		if err == nil {
			if err := f.client.Set(ctx, key, data, f.ttl).Err(); err != nil {
				slog.Warn("bible cache write failed", "key", key, "error", err)
			}
		}
	}
	return verses, nil
}
