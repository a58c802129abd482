package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newsdesk-api/internal/events"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/repository"
	"github.com/newsdesk-api/internal/validation"
	"github.com/rs/zerolog"
)

// profileService is the concrete implementation of ProfileService
type profileService struct {
	repo      repository.ProfileRepository
	validator *validation.Validator
	feed      events.Feed
	now       func() time.Time
	log       zerolog.Logger
}

func newProfileService(deps Dependencies, v *validation.Validator, log zerolog.Logger) *profileService {
	return &profileService{
		repo:      deps.Repos.Profile,
		validator: v,
		feed:      deps.Feed,
		now:       deps.Now,
		log:       log.With().Str("service", "profile").Logger(),
	}
}

// Get returns the public profile of a user
func (s *profileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// GetOwn returns the actor's profile, blank when none has been saved yet
func (s *profileService) GetOwn(ctx context.Context, actor models.Actor) (*models.Profile, error) {
	if actor.IsAnonymous() {
		return nil, ErrUnauthenticated
	}
	p, err := s.repo.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if p == nil {
		return &models.Profile{UserID: actor.UserID}, nil
	}
	return p, nil
}

// UpdateOwn applies the fields present in input to the actor's profile
func (s *profileService) UpdateOwn(ctx context.Context, actor models.Actor, input *models.ProfileInput) (*models.Profile, error) {
	if actor.IsAnonymous() {
		return nil, ErrUnauthenticated
	}
	if err := invalid(s.validator.ValidateProfile(input)); err != nil {
		return nil, err
	}
	return s.save(ctx, actor.UserID, func(p *models.Profile) {
		if input.DisplayName != nil {
			p.DisplayName = strings.TrimSpace(*input.DisplayName)
		}
		if input.AvatarURL != nil {
			p.AvatarURL = *input.AvatarURL
		}
		if input.Bio != nil {
			p.Bio = strings.TrimSpace(*input.Bio)
		}
	})
}

// setAvatar points the user's profile at a freshly uploaded image
func (s *profileService) setAvatar(ctx context.Context, userID, url string) (*models.Profile, error) {
	return s.save(ctx, userID, func(p *models.Profile) { p.AvatarURL = url })
}

func (s *profileService) save(ctx context.Context, userID string, apply func(*models.Profile)) (*models.Profile, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	now := s.now().UTC()
	changeType := models.ChangeUpdate
	if p == nil {
		p = &models.Profile{ID: uuid.New().String(), UserID: userID, CreatedAt: now}
		changeType = models.ChangeInsert
	}
	apply(p)
	p.UpdatedAt = now

	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	s.log.Info().Str("user_id", userID).Msg("Profile saved")
	publish(ctx, s.feed, s.log, models.NewChangeEvent(models.TableProfiles, changeType, userID, p))
	return p, nil
}
