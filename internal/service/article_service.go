package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newsdesk-api/internal/config"
	"github.com/newsdesk-api/internal/events"
	"github.com/newsdesk-api/internal/metrics"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/policy"
	"github.com/newsdesk-api/internal/repository"
	"github.com/newsdesk-api/internal/validation"
	"github.com/newsdesk-api/internal/workflow"
	"github.com/rs/zerolog"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
	breakingLimit    = 5
)

// articleService is the concrete implementation of ArticleService
type articleService struct {
	repo       repository.ArticleRepository
	categories CategoryService
	resolver   *policy.Resolver
	machine    *workflow.Machine
	validator  *validation.Validator
	feed       events.Feed
	metrics    *metrics.Metrics
	cfg        config.ArticlesConfig
	now        func() time.Time
	log        zerolog.Logger
}

func newArticleService(deps Dependencies, resolver *policy.Resolver, machine *workflow.Machine, categories CategoryService, v *validation.Validator, cfg config.ArticlesConfig, log zerolog.Logger) *articleService {
	return &articleService{
		repo:       deps.Repos.Article,
		categories: categories,
		resolver:   resolver,
		machine:    machine,
		validator:  v,
		feed:       deps.Feed,
		metrics:    deps.Metrics,
		cfg:        cfg,
		now:        deps.Now,
		log:        log.With().Str("service", "article").Logger(),
	}
}

// ListPublished returns published articles, newest first, optionally narrowed to one category
func (s *articleService) ListPublished(ctx context.Context, category string, limit int) ([]*models.Article, error) {
	return s.repo.List(ctx, models.ArticleFilter{
		Category: category,
		Status:   models.StatusPublished,
		OrderBy:  models.OrderNewest,
		Limit:    clampLimit(limit, defaultListLimit, maxListLimit),
	})
}

// Breaking returns the latest published breaking stories
func (s *articleService) Breaking(ctx context.Context) ([]*models.Article, error) {
	return s.repo.List(ctx, models.ArticleFilter{
		Status:       models.StatusPublished,
		OnlyBreaking: true,
		OrderBy:      models.OrderNewest,
		Limit:        breakingLimit,
	})
}

// Featured returns the most recently published featured article
func (s *articleService) Featured(ctx context.Context) (*models.Article, error) {
	list, err := s.repo.List(ctx, models.ArticleFilter{
		Status:       models.StatusPublished,
		OnlyFeatured: true,
		OrderBy:      models.OrderNewest,
		Limit:        1,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

// GetBySlug returns an article for the reader site. Unpublished articles are
// only visible to staff allowed to edit them; everyone else gets ErrNotFound.
func (s *articleService) GetBySlug(ctx context.Context, actor models.Actor, slug string) (*models.Article, error) {
	article, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	if article == nil {
		return nil, ErrNotFound
	}
	if article.Status == models.StatusPublished {
		return article, nil
	}

	role, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !policy.CanPreviewArticle(role, actor.UserID, article) {
		return nil, ErrNotFound
	}
	return article, nil
}

// ListForAdmin returns every article to admins and only their own to editors
func (s *articleService) ListForAdmin(ctx context.Context, actor models.Actor) ([]*models.Article, error) {
	role, err := authenticated(ctx, s.resolver, actor)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewArticleList(role) {
		return nil, ErrForbidden
	}

	filter := models.ArticleFilter{OrderBy: models.OrderRecent}
	if role != models.RoleAdmin {
		filter.AuthorID = actor.UserID
	}
	return s.repo.List(ctx, filter)
}

// Get returns an article for the edit form
func (s *articleService) Get(ctx context.Context, actor models.Actor, id string) (*models.Article, error) {
	role, err := authenticated(ctx, s.resolver, actor)
	if err != nil {
		return nil, err
	}
	article, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyArticle(role, actor.UserID, article.AuthorID) {
		return nil, ErrForbidden
	}
	return article, nil
}

// Create writes a new article authored by the actor
func (s *articleService) Create(ctx context.Context, actor models.Actor, input *models.ArticleInput) (*models.Article, error) {
	role, err := authenticated(ctx, s.resolver, actor)
	if err != nil {
		return nil, err
	}
	if !policy.CanCreateArticle(role) {
		return nil, ErrForbidden
	}
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}

	now := s.now()
	change, err := s.machine.Create(role, input.Status, now)
	if err != nil {
		return nil, err
	}

	slug, err := uniqueSlug(ctx, input.Title, now, s.repo.SlugExists)
	if err != nil {
		return nil, err
	}

	authorID := actor.UserID
	article := &models.Article{
		ID:          uuid.New().String(),
		Slug:        slug,
		AuthorID:    &authorID,
		Status:      change.Status,
		PublishedAt: change.PublishedAt,
		CreatedAt:   now.UTC(),
	}
	applyInput(article, input)
	article.UpdatedAt = article.CreatedAt

	if err := s.repo.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	s.metrics.ArticleTransitions.WithLabelValues(string(article.Status)).Inc()
	s.log.Info().
		Str("article_id", article.ID).
		Str("slug", article.Slug).
		Str("status", string(article.Status)).
		Str("user_id", actor.UserID).
		Msg("Article created")

	publish(ctx, s.feed, s.log, models.NewChangeEvent(models.TableArticles, models.ChangeInsert, article.ID, article))
	return article, nil
}

// Update rewrites the editable fields of an article in a single store write.
// A status different from the current one goes through the state machine.
func (s *articleService) Update(ctx context.Context, actor models.Actor, id string, input *models.ArticleInput) (*models.Article, error) {
	role, err := authenticated(ctx, s.resolver, actor)
	if err != nil {
		return nil, err
	}
	article, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyArticle(role, actor.UserID, article.AuthorID) {
		return nil, ErrForbidden
	}
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}

	now := s.now()
	statusChanged := input.Status != "" && input.Status != article.Status
	if statusChanged {
		change, err := s.machine.Transition(role, actor.UserID, article, input.Status, now)
		if err != nil {
			return nil, err
		}
		article.Status = change.Status
		article.PublishedAt = change.PublishedAt
	}

	applyInput(article, input)
	article.UpdatedAt = now.UTC()

	if err := s.write(ctx, article); err != nil {
		return nil, err
	}
	if statusChanged {
		s.metrics.ArticleTransitions.WithLabelValues(string(article.Status)).Inc()
	}

	s.log.Info().Str("article_id", article.ID).Str("user_id", actor.UserID).Msg("Article updated")
	publish(ctx, s.feed, s.log, models.NewChangeEvent(models.TableArticles, models.ChangeUpdate, article.ID, article))
	return article, nil
}

// SetStatus moves an article through the state machine
func (s *articleService) SetStatus(ctx context.Context, actor models.Actor, id string, status models.ArticleStatus) (*models.Article, error) {
	role, err := authenticated(ctx, s.resolver, actor)
	if err != nil {
		return nil, err
	}
	article, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	change, err := s.machine.Transition(role, actor.UserID, article, status, now)
	if err != nil {
		return nil, err
	}
	if err := s.requireCategory(ctx, article.Category); err != nil {
		return nil, err
	}

	previous := article.Status
	article.Status = change.Status
	article.PublishedAt = change.PublishedAt
	article.UpdatedAt = now.UTC()

	if err := s.write(ctx, article); err != nil {
		return nil, err
	}

	s.metrics.ArticleTransitions.WithLabelValues(string(article.Status)).Inc()
	s.log.Info().
		Str("article_id", article.ID).
		Str("from", string(previous)).
		Str("to", string(article.Status)).
		Str("user_id", actor.UserID).
		Msg("Article status changed")

	publish(ctx, s.feed, s.log, models.NewChangeEvent(models.TableArticles, models.ChangeUpdate, article.ID, article))
	return article, nil
}

// Delete permanently removes an article
func (s *articleService) Delete(ctx context.Context, actor models.Actor, id string) error {
	role, err := authenticated(ctx, s.resolver, actor)
	if err != nil {
		return err
	}
	article, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteArticle(role, actor.UserID, article.AuthorID) {
		return ErrForbidden
	}

	ok, err := s.repo.Delete(ctx, article.ID)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	s.log.Info().Str("article_id", article.ID).Str("user_id", actor.UserID).Msg("Article deleted")
	publish(ctx, s.feed, s.log, models.NewChangeEvent(models.TableArticles, models.ChangeDelete, article.ID, nil))
	return nil
}

func (s *articleService) load(ctx context.Context, id string) (*models.Article, error) {
	if !validation.IsValidUUID(id) {
		return nil, ErrNotFound
	}
	article, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	if article == nil {
		return nil, ErrNotFound
	}
	return article, nil
}

func (s *articleService) write(ctx context.Context, article *models.Article) error {
	ok, err := s.repo.Update(ctx, article)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// validate checks the payload and fills in the default category
func (s *articleService) validate(ctx context.Context, input *models.ArticleInput) error {
	input.Category = strings.TrimSpace(input.Category)
	if input.Category == "" {
		input.Category = s.cfg.DefaultCategory
	}
	if err := invalid(s.validator.ValidateArticle(input)); err != nil {
		return err
	}
	return s.requireCategory(ctx, input.Category)
}

func (s *articleService) requireCategory(ctx context.Context, name string) error {
	ok, err := s.categories.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to look up category: %w", err)
	}
	if !ok {
		return invalidField("category", "unknown category", name)
	}
	return nil
}

// applyInput copies the writable fields; status, slug and author are handled by the caller
func applyInput(a *models.Article, in *models.ArticleInput) {
	a.Title = strings.TrimSpace(in.Title)
	a.Excerpt = strings.TrimSpace(in.Excerpt)
	a.Content = in.Content
	a.Category = in.Category
	a.ImageURL = in.ImageURL
	a.IsBreaking = in.IsBreaking
	a.IsFeatured = in.IsFeatured
	a.SEOTitle = in.SEOTitle
	a.MetaDescription = in.MetaDescription
	a.Keywords = in.Keywords
	a.OGImage = in.OGImage
	a.CanonicalURL = in.CanonicalURL
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
