package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/newsdesk-api/internal/cache"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/service"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewService_DeduplicatesPerSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	article := f.seedArticle(t, models.Article{})

	counted, err := f.svc.View.RecordView(ctx, article.ID, "session-a")
	require.NoError(t, err)
	assert.True(t, counted)

	counted, err = f.svc.View.RecordView(ctx, article.ID, "session-a")
	require.NoError(t, err)
	assert.False(t, counted, "same session counts once")

	counted, err = f.svc.View.RecordView(ctx, article.ID, "session-b")
	require.NoError(t, err)
	assert.True(t, counted)

	count, err := f.svc.View.LiveViewCount(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.ArticleViews))
}

func TestViewService_EmptyTokenAlwaysCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	article := f.seedArticle(t, models.Article{})

	for i := 0; i < 3; i++ {
		counted, err := f.svc.View.RecordView(ctx, article.ID, "")
		require.NoError(t, err)
		assert.True(t, counted)
	}
	count, _ := f.svc.View.LiveViewCount(ctx, article.ID)
	assert.Equal(t, int64(3), count)
}

func TestViewService_UnknownArticleReleasesMark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New().String()

	_, err := f.svc.View.RecordView(ctx, id, "session-a")
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.svc.View.RecordView(ctx, "not-a-uuid", "session-a")
	assert.ErrorIs(t, err, service.ErrNotFound)

	// the article appears later; the earlier miss must not swallow this view
	f.seedArticle(t, models.Article{ID: id})
	counted, err := f.svc.View.RecordView(ctx, id, "session-a")
	require.NoError(t, err)
	assert.True(t, counted)

	_, err = f.svc.View.LiveViewCount(ctx, uuid.New().String())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestViewService_ConcurrentViewsAreNotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	article := f.seedArticle(t, models.Article{})

	const sessions = 50
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("session-%d", i)
			// every session reports twice; only one of them may count
			f.svc.View.RecordView(ctx, article.ID, token)
			f.svc.View.RecordView(ctx, article.ID, token)
		}(i)
	}
	wg.Wait()

	count, err := f.svc.View.LiveViewCount(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(sessions), count)
}

func TestViewService_PopularArticles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := f.clock.Now()

	older := f.seedArticle(t, models.Article{ViewCount: 10, CreatedAt: base})
	newer := f.seedArticle(t, models.Article{ViewCount: 10, CreatedAt: base.Add(time.Minute)})
	top := f.seedArticle(t, models.Article{ViewCount: 40})
	f.seedArticle(t, models.Article{ViewCount: 500, Status: models.StatusDraft})

	popular, err := f.svc.View.PopularArticles(ctx, 0)
	require.NoError(t, err)
	require.Len(t, popular, 3, "drafts are never ranked")
	assert.Equal(t, []string{top.ID, older.ID, newer.ID}, []string{popular[0].ID, popular[1].ID, popular[2].ID})

	limited, err := f.svc.View.PopularArticles(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestViewService_PopularCacheInvalidatedByViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedArticle(t, models.Article{ViewCount: 5})
	b := f.seedArticle(t, models.Article{ViewCount: 4})

	popular, err := f.svc.View.PopularArticles(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, a.ID, popular[0].ID)

	// change the store behind the cache; the stale ranking is served until an event arrives
	f.store.Articles.IncrementViewCount(ctx, b.ID)
	f.store.Articles.IncrementViewCount(ctx, b.ID)
	popular, _ = f.svc.View.PopularArticles(ctx, 2)
	assert.Equal(t, a.ID, popular[0].ID)

	_, err = f.svc.View.RecordView(ctx, b.ID, "session-x")
	require.NoError(t, err)

	popular, err = f.svc.View.PopularArticles(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, b.ID, popular[0].ID)
	assert.Equal(t, int64(7), popular[0].ViewCount)
}

func TestViewService_StaleRankingNotCachedAfterInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedArticle(t, models.Article{ViewCount: 2})
	b := f.seedArticle(t, models.Article{ViewCount: 1})

	// a view lands while the ranking is being read
	f.store.Articles.AfterList = func() {
		f.store.Articles.AfterList = nil
		f.store.Articles.IncrementViewCount(ctx, b.ID)
		_, err := f.svc.View.RecordView(ctx, b.ID, "session-y")
		require.NoError(t, err)
	}

	popular, err := f.svc.View.PopularArticles(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, a.ID, popular[0].ID, "the in-flight read returns what it saw")

	popular, err = f.svc.View.PopularArticles(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, b.ID, popular[0].ID)
	assert.Equal(t, int64(3), popular[0].ViewCount)
}

func TestViewService_CategoryPopularity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedArticle(t, models.Article{Category: "sports", ViewCount: 10})
	f.seedArticle(t, models.Article{Category: "sports", ViewCount: 5, Status: models.StatusDraft})
	f.seedArticle(t, models.Article{Category: "politics", ViewCount: 7})

	stats, err := f.svc.View.CategoryPopularity(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryStats{TotalViews: 15, ArticleCount: 2}, stats["sports"])
	assert.Equal(t, models.CategoryStats{TotalViews: 7, ArticleCount: 1}, stats["politics"])

	// callers may not corrupt the cached map
	delete(stats, "sports")
	again, _ := f.svc.View.CategoryPopularity(ctx)
	assert.Contains(t, again, "sports")
}

func TestViewService_RedisDeduper(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := newFixtureWith(t, testConfig(), func(deps *service.Dependencies) {
		deps.Deduper = cache.NewRedisDeduper(client, "newsdesk:", time.Hour)
	})
	ctx := context.Background()
	article := f.seedArticle(t, models.Article{})

	counted, err := f.svc.View.RecordView(ctx, article.ID, "session-a")
	require.NoError(t, err)
	assert.True(t, counted)
	counted, _ = f.svc.View.RecordView(ctx, article.ID, "session-a")
	assert.False(t, counted)

	mr.FastForward(2 * time.Hour)
	counted, _ = f.svc.View.RecordView(ctx, article.ID, "session-a")
	assert.True(t, counted, "a new browsing session counts again")

	// Redis going away must not stop counting
	mr.Close()
	counted, err = f.svc.View.RecordView(ctx, article.ID, "session-a")
	require.NoError(t, err)
	assert.True(t, counted)

	count, _ := f.svc.View.LiveViewCount(ctx, article.ID)
	assert.Equal(t, int64(3), count)
}
