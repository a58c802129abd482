package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/newsdesk-api/internal/config"
	"github.com/newsdesk-api/internal/events"
	"github.com/newsdesk-api/internal/metrics"
	"github.com/newsdesk-api/internal/mocks"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/service"
	"github.com/rs/zerolog"
)

var (
	admin   = models.Actor{UserID: "admin-1", Email: "admin@example.com"}
	editor  = models.Actor{UserID: "editor-1", Email: "editor@example.com"}
	editor2 = models.Actor{UserID: "editor-2", Email: "second@example.com"}
	reader  = models.Actor{UserID: "reader-1", Email: "reader@example.com"}
	anon    = models.Anonymous()
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc     *service.Services
	store   *mocks.Store
	objects *mocks.MockObjectStore
	feed    *events.LocalFeed
	metrics *metrics.Metrics
	clock   *clock
}

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{
			MaxImageSize:   5 << 20,
			MaxAvatarSize:  2 << 20,
			ArticlesPrefix: "articles",
			AvatarsPrefix:  "avatars",
		},
		Articles: config.ArticlesConfig{DefaultCategory: "national"},
		Views: config.ViewsConfig{
			DedupTTL:     time.Hour,
			DedupSize:    1000,
			PopularTTL:   time.Minute,
			PopularLimit: 50,
		},
		Visitors: config.VisitorsConfig{
			Retention:     90 * 24 * time.Hour,
			SweepInterval: time.Hour,
			ListLimit:     500,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, testConfig(), nil)
}

func newFixtureWith(t *testing.T, cfg *config.Config, customize func(*service.Dependencies)) *fixture {
	t.Helper()

	store := mocks.NewStore()
	store.Categories.SeedCategories("politics", "sports", "national", "technology")
	store.Roles.Grant(admin.UserID, models.RoleAdmin)
	store.Roles.Grant(editor.UserID, models.RoleEditor)
	store.Roles.Grant(editor2.UserID, models.RoleEditor)

	f := &fixture{
		store:   store,
		objects: mocks.NewMockObjectStore(),
		feed:    events.NewLocalFeed(),
		metrics: metrics.New(),
		clock:   &clock{now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)},
	}
	deps := service.Dependencies{
		Repos:   store.Repositories(),
		Feed:    f.feed,
		Store:   f.objects,
		Metrics: f.metrics,
		Now:     f.clock.Now,
	}
	if customize != nil {
		customize(&deps)
	}
	f.svc = service.NewServices(deps, cfg, zerolog.Nop())
	t.Cleanup(f.svc.View.Close)
	return f
}

func articleInput(title string) *models.ArticleInput {
	return &models.ArticleInput{
		Title:   title,
		Content: "पूरा समाचार यहाँ है",
	}
}

// seedArticle stores an article directly, bypassing the service
func (f *fixture) seedArticle(t *testing.T, a models.Article) *models.Article {
	t.Helper()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Slug == "" {
		a.Slug = "seed-" + a.ID
	}
	if a.Category == "" {
		a.Category = "national"
	}
	if a.Status == "" {
		a.Status = models.StatusPublished
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = f.clock.Now()
	}
	if err := f.store.Articles.Create(context.Background(), &a); err != nil {
		t.Fatalf("seed article: %v", err)
	}
	return &a
}

func (f *fixture) recordEvents(table string) func() []models.ChangeEvent {
	var mu sync.Mutex
	var got []models.ChangeEvent
	f.feed.Subscribe(table, events.Filter{}, func(ev models.ChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	})
	return func() []models.ChangeEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]models.ChangeEvent(nil), got...)
	}
}

func strPtr(s string) *string { return &s }
