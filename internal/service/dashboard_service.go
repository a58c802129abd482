package service

import (
	"context"
	"fmt"
	"time"

	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/policy"
	"github.com/newsdesk-api/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const recentArticles = 5

// dashboardService is the concrete implementation of DashboardService
type dashboardService struct {
	articles repository.ArticleRepository
	resolver *policy.Resolver
	now      func() time.Time
	log      zerolog.Logger
}

func newDashboardService(deps Dependencies, resolver *policy.Resolver, log zerolog.Logger) *dashboardService {
	return &dashboardService{
		articles: deps.Repos.Article,
		resolver: resolver,
		now:      deps.Now,
		log:      log.With().Str("service", "dashboard").Logger(),
	}
}

// Summary gathers the dashboard counters concurrently
func (s *dashboardService) Summary(ctx context.Context, actor models.Actor) (*models.DashboardSummary, error) {
	role, err := authenticated(ctx, s.resolver, actor)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewDashboard(role) {
		return nil, ErrForbidden
	}

	today := s.now().UTC()
	summary := &models.DashboardSummary{}

	g, ctx := errgroup.WithContext(ctx)
	count := func(dst *int, filter models.ArticleFilter) {
		g.Go(func() error {
			n, err := s.articles.Count(ctx, filter)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	count(&summary.TotalArticles, models.ArticleFilter{})
	count(&summary.Breaking, models.ArticleFilter{OnlyBreaking: true})
	count(&summary.Featured, models.ArticleFilter{OnlyFeatured: true})
	count(&summary.PublishedToday, models.ArticleFilter{Status: models.StatusPublished, PublishedOn: &today})
	count(&summary.PendingReview, models.ArticleFilter{Status: models.StatusPendingReview})

	g.Go(func() error {
		stats, err := s.articles.CategoryStats(ctx)
		if err != nil {
			return err
		}
		byCategory := make(map[string]int, len(stats))
		for name, st := range stats {
			byCategory[name] = st.ArticleCount
		}
		summary.ByCategory = byCategory
		return nil
	})
	g.Go(func() error {
		recent, err := s.articles.List(ctx, models.ArticleFilter{OrderBy: models.OrderRecent, Limit: recentArticles})
		if err != nil {
			return err
		}
		summary.Recent = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Msg("Failed to build dashboard")
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return summary, nil
}
