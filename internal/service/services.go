package service

import (
	"context"
	"io"
	"time"

	"github.com/newsdesk-api/internal/cache"
	"github.com/newsdesk-api/internal/config"
	"github.com/newsdesk-api/internal/events"
	"github.com/newsdesk-api/internal/metrics"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/policy"
	"github.com/newsdesk-api/internal/repository"
	"github.com/newsdesk-api/internal/storage"
	"github.com/newsdesk-api/internal/validation"
	"github.com/newsdesk-api/internal/workflow"
	"github.com/rs/zerolog"
)

// ArticleService defines the interface for article authoring and reading
type ArticleService interface {
	ListPublished(ctx context.Context, category string, limit int) ([]*models.Article, error)
	Breaking(ctx context.Context) ([]*models.Article, error)
	Featured(ctx context.Context) (*models.Article, error)
	GetBySlug(ctx context.Context, actor models.Actor, slug string) (*models.Article, error)

	ListForAdmin(ctx context.Context, actor models.Actor) ([]*models.Article, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Article, error)
	Create(ctx context.Context, actor models.Actor, input *models.ArticleInput) (*models.Article, error)
	Update(ctx context.Context, actor models.Actor, id string, input *models.ArticleInput) (*models.Article, error)
	SetStatus(ctx context.Context, actor models.Actor, id string, status models.ArticleStatus) (*models.Article, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

// ViewService defines the interface for view counting and popularity
type ViewService interface {
	RecordView(ctx context.Context, articleID, sessionToken string) (bool, error)
	LiveViewCount(ctx context.Context, articleID string) (int64, error)
	PopularArticles(ctx context.Context, limit int) ([]*models.Article, error)
	CategoryPopularity(ctx context.Context) (map[string]models.CategoryStats, error)
	Close()
}

// CategoryService defines the interface for the category registry
type CategoryService interface {
	List(ctx context.Context) ([]*models.Category, error)
	ListActive(ctx context.Context) ([]*models.Category, error)
	Get(ctx context.Context, name string) (*models.Category, error)
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, actor models.Actor, input *models.CategoryInput) (*models.Category, error)
	Update(ctx context.Context, actor models.Actor, name string, update *models.CategoryUpdate) (*models.Category, error)
	Delete(ctx context.Context, actor models.Actor, name string) error
}

// UserService defines the interface for user and role management
type UserService interface {
	ListUsers(ctx context.Context, actor models.Actor) ([]*models.UserWithRole, error)
	AssignRole(ctx context.Context, actor models.Actor, userID string, role models.Role) (*models.UserRoleAssignment, error)
	RevokeRole(ctx context.Context, actor models.Actor, roleID string) error
	MyRole(ctx context.Context, actor models.Actor) (models.Role, error)
}

// ProfileService defines the interface for user profiles
type ProfileService interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	GetOwn(ctx context.Context, actor models.Actor) (*models.Profile, error)
	UpdateOwn(ctx context.Context, actor models.Actor, input *models.ProfileInput) (*models.Profile, error)
}

// MediaService defines the interface for image uploads
type MediaService interface {
	UploadArticleImage(ctx context.Context, actor models.Actor, data []byte) (string, error)
	UploadAvatar(ctx context.Context, actor models.Actor, data []byte) (*models.Profile, error)
}

// SEOService defines the interface for site-wide SEO settings
type SEOService interface {
	Get(ctx context.Context) (models.SEOSettings, error)
	Update(ctx context.Context, actor models.Actor, settings map[string]string) (models.SEOSettings, error)
}

// VisitorService defines the interface for visitor analytics
type VisitorService interface {
	Record(ctx context.Context, in *VisitInput) (bool, error)
	List(ctx context.Context, actor models.Actor, filter models.VisitorFilter) ([]*models.Visit, error)
	Stats(ctx context.Context, actor models.Actor, filter models.VisitorFilter) (*models.VisitorStats, error)
	ExportCSV(ctx context.Context, actor models.Actor, filter models.VisitorFilter, w io.Writer) error
}

// DashboardService defines the interface for the admin dashboard
type DashboardService interface {
	Summary(ctx context.Context, actor models.Actor) (*models.DashboardSummary, error)
}

// RetentionService defines the interface for the visitor data sweeper
type RetentionService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	SweepOnce(ctx context.Context) (int64, error)
}

// Services holds all service interfaces
type Services struct {
	Article   ArticleService
	View      ViewService
	Category  CategoryService
	User      UserService
	Profile   ProfileService
	Media     MediaService
	SEO       SEOService
	Visitor   VisitorService
	Dashboard DashboardService
	Retention RetentionService
}

// Dependencies are the collaborators services are built from
type Dependencies struct {
	Repos   *repository.Repositories
	Feed    events.Feed
	Store   storage.ObjectStore
	Deduper cache.Deduper
	Metrics *metrics.Metrics
	// Now defaults to time.Now
	Now func() time.Time
}

// NewServices creates all services
func NewServices(deps Dependencies, cfg *config.Config, log zerolog.Logger) *Services {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Feed == nil {
		deps.Feed = events.NewLocalFeed()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Deduper == nil {
		deps.Deduper = cache.NewMemoryDeduper(cfg.Views.DedupSize, cfg.Views.DedupTTL)
	}

	resolver := policy.NewResolver(deps.Repos.Role)
	v := validation.NewValidator()
	machine := workflow.New(workflow.Options{ClearPublishedAtOnRevert: cfg.Articles.ClearPublishedAtOnRevert})

	categorySvc := newCategoryService(deps, resolver, v, log)
	profileSvc := newProfileService(deps, v, log)

	return &Services{
		Article:   newArticleService(deps, resolver, machine, categorySvc, v, cfg.Articles, log),
		View:      newViewService(deps, cfg.Views, log),
		Category:  categorySvc,
		User:      newUserService(deps, resolver, log),
		Profile:   profileSvc,
		Media:     newMediaService(deps, resolver, profileSvc, cfg.Storage, log),
		SEO:       newSEOService(deps, resolver, v, log),
		Visitor:   newVisitorService(deps, resolver, cfg.Visitors, log),
		Dashboard: newDashboardService(deps, resolver, log),
		Retention: newRetentionService(deps, cfg.Visitors, log),
	}
}

// authenticated resolves the role of a signed-in actor
func authenticated(ctx context.Context, resolver *policy.Resolver, actor models.Actor) (models.Role, error) {
	if actor.IsAnonymous() {
		return models.RoleUser, ErrUnauthenticated
	}
	return resolver.Resolve(ctx, actor)
}

// publish sends a change event; feed failures are logged, never returned
func publish(ctx context.Context, feed events.Feed, log zerolog.Logger, ev models.ChangeEvent) {
	if err := feed.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("table", ev.Table).Str("row_id", ev.RowID).Msg("Failed to publish change event")
	}
}
