package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/newsdesk-api/internal/cache"
	"github.com/newsdesk-api/internal/config"
	"github.com/newsdesk-api/internal/events"
	"github.com/newsdesk-api/internal/metrics"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/repository"
	"github.com/newsdesk-api/internal/validation"
	"github.com/rs/zerolog"
)

const defaultPopularLimit = 5

// viewCount is the payload of the change event a counted view publishes
type viewCount struct {
	ID        string `json:"id"`
	ViewCount int64  `json:"view_count"`
}

// viewService is the concrete implementation of ViewService
type viewService struct {
	repo        repository.ArticleRepository
	deduper     cache.Deduper
	feed        events.Feed
	metrics     *metrics.Metrics
	maxLimit    int
	popular     *expirable.LRU[int, []*models.Article]
	byCategory  *expirable.LRU[string, map[string]models.CategoryStats]
	unsubscribe func()

	// generation is bumped on every invalidation; a fetch that started
	// under an older generation must not repopulate the caches
	cacheMu    sync.Mutex
	generation uint64
	log         zerolog.Logger
}

func newViewService(deps Dependencies, cfg config.ViewsConfig, log zerolog.Logger) *viewService {
	maxLimit := cfg.PopularLimit
	if maxLimit <= 0 {
		maxLimit = 50
	}
	s := &viewService{
		repo:       deps.Repos.Article,
		deduper:    deps.Deduper,
		feed:       deps.Feed,
		metrics:    deps.Metrics,
		maxLimit:   maxLimit,
		popular:    expirable.NewLRU[int, []*models.Article](maxLimit, nil, cfg.PopularTTL),
		byCategory: expirable.NewLRU[string, map[string]models.CategoryStats](1, nil, cfg.PopularTTL),
		log:        log.With().Str("service", "views").Logger(),
	}
	// any article change may reorder the rankings
	s.unsubscribe = deps.Feed.Subscribe(models.TableArticles, events.Filter{}, func(models.ChangeEvent) {
		s.invalidate()
	})
	return s
}

// RecordView counts one view of an article, at most once per session token.
// An empty token cannot be de-duplicated and always counts.
func (s *viewService) RecordView(ctx context.Context, articleID, sessionToken string) (bool, error) {
	if !validation.IsValidUUID(articleID) {
		return false, ErrNotFound
	}

	key := ""
	if sessionToken != "" {
		key = "view:" + sessionToken + ":" + articleID
		first, err := s.deduper.FirstSeen(ctx, key)
		if err != nil {
			// count anyway when the deduper is down
			s.log.Warn().Err(err).Str("article_id", articleID).Msg("View de-duplication unavailable")
			key = ""
		} else if !first {
			return false, nil
		}
	}

	count, found, err := s.repo.IncrementViewCount(ctx, articleID)
	if err != nil || !found {
		s.release(ctx, key)
		if err != nil {
			return false, fmt.Errorf("failed to increment view count: %w", err)
		}
		return false, ErrNotFound
	}

	s.metrics.ArticleViews.Inc()
	s.log.Debug().Str("article_id", articleID).Int64("view_count", count).Msg("View counted")
	publish(ctx, s.feed, s.log, models.NewChangeEvent(models.TableArticles, models.ChangeUpdate, articleID,
		viewCount{ID: articleID, ViewCount: count}))
	return true, nil
}

func (s *viewService) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.deduper.Forget(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to release view mark")
	}
}

// LiveViewCount returns the current counter of an article
func (s *viewService) LiveViewCount(ctx context.Context, articleID string) (int64, error) {
	if !validation.IsValidUUID(articleID) {
		return 0, ErrNotFound
	}
	count, found, err := s.repo.GetViewCount(ctx, articleID)
	if err != nil {
		return 0, fmt.Errorf("failed to get view count: %w", err)
	}
	if !found {
		return 0, ErrNotFound
	}
	return count, nil
}

// PopularArticles ranks published articles by views, ties broken by age then id
func (s *viewService) PopularArticles(ctx context.Context, limit int) ([]*models.Article, error) {
	limit = clampLimit(limit, defaultPopularLimit, s.maxLimit)
	if list, ok := s.popular.Get(limit); ok {
		return list, nil
	}

	gen := s.currentGeneration()
	list, err := s.repo.List(ctx, models.ArticleFilter{
		Status:  models.StatusPublished,
		OrderBy: models.OrderMostViewed,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list popular articles: %w", err)
	}
	s.cacheMu.Lock()
	if gen == s.generation {
		s.popular.Add(limit, list)
	}
	s.cacheMu.Unlock()
	return list, nil
}

// CategoryPopularity sums views and article counts per category over all articles
func (s *viewService) CategoryPopularity(ctx context.Context) (map[string]models.CategoryStats, error) {
	const key = "all"
	if stats, ok := s.byCategory.Get(key); ok {
		return copyStats(stats), nil
	}

	gen := s.currentGeneration()
	stats, err := s.repo.CategoryStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate category stats: %w", err)
	}
	s.cacheMu.Lock()
	if gen == s.generation {
		s.byCategory.Add(key, stats)
	}
	s.cacheMu.Unlock()
	return copyStats(stats), nil
}

func (s *viewService) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

func (s *viewService) invalidate() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	s.popular.Purge()
	s.byCategory.Purge()
}

// Close stops listening for article changes
func (s *viewService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func copyStats(in map[string]models.CategoryStats) map[string]models.CategoryStats {
	out := make(map[string]models.CategoryStats, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

