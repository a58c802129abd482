package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/newsdesk-api/internal/config"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/policy"
	"github.com/newsdesk-api/internal/storage"
	"github.com/rs/zerolog"
)

// mediaService is the concrete implementation of MediaService
type mediaService struct {
	store    storage.ObjectStore
	profiles *profileService
	resolver *policy.Resolver
	cfg      config.StorageConfig
	log      zerolog.Logger
}

func newMediaService(deps Dependencies, resolver *policy.Resolver, profiles *profileService, cfg config.StorageConfig, log zerolog.Logger) *mediaService {
	return &mediaService{
		store:    deps.Store,
		profiles: profiles,
		resolver: resolver,
		cfg:      cfg,
		log:      log.With().Str("service", "media").Logger(),
	}
}

// UploadArticleImage stores an article illustration and returns its public URL
func (s *mediaService) UploadArticleImage(ctx context.Context, actor models.Actor, data []byte) (string, error) {
	role, err := authenticated(ctx, s.resolver, actor)
	if err != nil {
		return "", err
	}
	if !policy.CanCreateArticle(role) {
		return "", ErrForbidden
	}
	return s.put(ctx, actor, s.cfg.ArticlesPrefix, s.cfg.MaxImageSize, data)
}

// UploadAvatar stores a profile picture and points the actor's profile at it
func (s *mediaService) UploadAvatar(ctx context.Context, actor models.Actor, data []byte) (*models.Profile, error) {
	if actor.IsAnonymous() {
		return nil, ErrUnauthenticated
	}
	url, err := s.put(ctx, actor, s.cfg.AvatarsPrefix, s.cfg.MaxAvatarSize, data)
	if err != nil {
		return nil, err
	}
	return s.profiles.setAvatar(ctx, actor.UserID, url)
}

func (s *mediaService) put(ctx context.Context, actor models.Actor, prefix string, limit int64, data []byte) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("object storage is not configured")
	}
	if len(data) == 0 {
		return "", invalidField("file", "file is required", nil)
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, limit)
	}

	// the client's Content-Type header is not trusted
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", invalidField("file", "file must be an image", mt.String())
	}

	key := path.Join(prefix, uuid.New().String()+mt.Extension())
	url, err := s.store.Put(ctx, key, mt.String(), data)
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}

	s.log.Info().
		Str("key", key).
		Str("content_type", mt.String()).
		Int("size", len(data)).
		Str("user_id", actor.UserID).
		Msg("Image uploaded")
	return url, nil
}
