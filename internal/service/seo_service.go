package service

import (
	"context"
	"fmt"

	"github.com/newsdesk-api/internal/events"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/policy"
	"github.com/newsdesk-api/internal/repository"
	"github.com/newsdesk-api/internal/validation"
	"github.com/rs/zerolog"
)

// seoService is the concrete implementation of SEOService
type seoService struct {
	repo      repository.SEORepository
	resolver  *policy.Resolver
	validator *validation.Validator
	feed      events.Feed
	log       zerolog.Logger
}

func newSEOService(deps Dependencies, resolver *policy.Resolver, v *validation.Validator, log zerolog.Logger) *seoService {
	return &seoService{
		repo:      deps.Repos.SEO,
		resolver:  resolver,
		validator: v,
		feed:      deps.Feed,
		log:       log.With().Str("service", "seo").Logger(),
	}
}

// Get returns the stored settings merged over the defaults
func (s *seoService) Get(ctx context.Context) (models.SEOSettings, error) {
	stored, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load seo settings: %w", err)
	}
	settings := models.DefaultSEOSettings()
	for k, v := range stored {
		if models.IsSEOKey(k) {
			settings[k] = v
		}
	}
	return settings, nil
}

// Update stores the given keys and returns the merged result
func (s *seoService) Update(ctx context.Context, actor models.Actor, settings map[string]string) (models.SEOSettings, error) {
	role, err := authenticated(ctx, s.resolver, actor)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageGlobalSEO(role) {
		return nil, ErrForbidden
	}
	if err := invalid(s.validator.ValidateSEOSettings(settings)); err != nil {
		return nil, err
	}

	if len(settings) > 0 {
		if err := s.repo.Upsert(ctx, settings); err != nil {
			return nil, fmt.Errorf("failed to save seo settings: %w", err)
		}
		s.log.Info().Int("keys", len(settings)).Str("user_id", actor.UserID).Msg("SEO settings updated")
	}

	merged, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.feed, s.log, models.NewChangeEvent(models.TableSEO, models.ChangeUpdate, "site", merged))
	return merged, nil
}
