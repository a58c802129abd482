package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newsdesk-api/internal/events"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/policy"
	"github.com/newsdesk-api/internal/repository"
	"github.com/newsdesk-api/internal/validation"
	"github.com/rs/zerolog"
)

// categoryService is the concrete implementation of CategoryService
type categoryService struct {
	repo      repository.CategoryRepository
	resolver  *policy.Resolver
	validator *validation.Validator
	feed      events.Feed
	now       func() time.Time
	log       zerolog.Logger
}

func newCategoryService(deps Dependencies, resolver *policy.Resolver, v *validation.Validator, log zerolog.Logger) *categoryService {
	return &categoryService{
		repo:      deps.Repos.Category,
		resolver:  resolver,
		validator: v,
		feed:      deps.Feed,
		now:       deps.Now,
		log:       log.With().Str("service", "category").Logger(),
	}
}

// List returns every category ordered by sort_order, then name
func (s *categoryService) List(ctx context.Context) ([]*models.Category, error) {
	return s.repo.List(ctx, false)
}

// ListActive returns the categories shown in site navigation
func (s *categoryService) ListActive(ctx context.Context) ([]*models.Category, error) {
	return s.repo.List(ctx, true)
}

// Get returns the category with the given name, or nil when unknown
func (s *categoryService) Get(ctx context.Context, name string) (*models.Category, error) {
	if name == "" {
		return nil, nil
	}
	return s.repo.GetByName(ctx, name)
}

// Exists reports whether a category with the given name is registered
func (s *categoryService) Exists(ctx context.Context, name string) (bool, error) {
	c, err := s.Get(ctx, name)
	if err != nil {
		return false, err
	}
	return c != nil, nil
}

func (s *categoryService) authorize(ctx context.Context, actor models.Actor) error {
	role, err := authenticated(ctx, s.resolver, actor)
	if err != nil {
		return err
	}
	if !policy.CanManageCategories(role) {
		return ErrForbidden
	}
	return nil
}

// Create registers a new category
func (s *categoryService) Create(ctx context.Context, actor models.Actor, input *models.CategoryInput) (*models.Category, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := invalid(s.validator.ValidateCategory(input)); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, input.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up category: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: category %q", ErrConflict, input.Name)
	}

	now := s.now().UTC()
	category := &models.Category{
		ID:        uuid.New().String(),
		Name:      input.Name,
		Label:     strings.TrimSpace(input.Label),
		Color:     input.Color,
		IsActive:  true,
		SortOrder: input.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if category.Color == "" {
		category.Color = "bg-primary"
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent create
			return nil, fmt.Errorf("%w: category %q", ErrConflict, input.Name)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.log.Info().Str("category", category.Name).Str("user_id", actor.UserID).Msg("Category created")
	publish(ctx, s.feed, s.log, models.NewChangeEvent(models.TableCategories, models.ChangeInsert, category.Name, category))
	return category, nil
}

// Update changes the label, colour, visibility or order of a category
func (s *categoryService) Update(ctx context.Context, actor models.Actor, name string, update *models.CategoryUpdate) (*models.Category, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}
	if err := invalid(s.validator.ValidateCategoryUpdate(update)); err != nil {
		return nil, err
	}

	category, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up category: %w", err)
	}
	if category == nil {
		return nil, ErrNotFound
	}

	if update.Label != nil {
		category.Label = strings.TrimSpace(*update.Label)
	}
	if update.Color != nil {
		category.Color = *update.Color
	}
	if update.IsActive != nil {
		category.IsActive = *update.IsActive
	}
	if update.SortOrder != nil {
		category.SortOrder = *update.SortOrder
	}
	category.UpdatedAt = s.now().UTC()

	ok, err := s.repo.Update(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	s.log.Info().Str("category", category.Name).Str("user_id", actor.UserID).Msg("Category updated")
	publish(ctx, s.feed, s.log, models.NewChangeEvent(models.TableCategories, models.ChangeUpdate, category.Name, category))
	return category, nil
}

// Delete removes a category. Articles filed under it are left untouched.
func (s *categoryService) Delete(ctx context.Context, actor models.Actor, name string) error {
	if err := s.authorize(ctx, actor); err != nil {
		return err
	}
	ok, err := s.repo.Delete(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	s.log.Info().Str("category", name).Str("user_id", actor.UserID).Msg("Category deleted")
	publish(ctx, s.feed, s.log, models.NewChangeEvent(models.TableCategories, models.ChangeDelete, name, nil))
	return nil
}
