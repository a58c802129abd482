package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newsdesk-api/internal/config"
	"github.com/newsdesk-api/internal/service"
	"github.com/newsdesk-api/internal/validation"
	"github.com/rs/zerolog"
)

var fileRequired = []validation.ValidationError{{Field: "file", Message: "file is required"}}

// MediaHandler handles image uploads
type MediaHandler struct {
	services *service.Services
	cfg      config.StorageConfig
	log      zerolog.Logger
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(services *service.Services, cfg config.StorageConfig, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "media").Logger(),
	}
}

// UploadArticleImage handles POST /v1/admin/media (multipart field "file")
func (h *MediaHandler) UploadArticleImage(c *gin.Context) {
	data, err := readUpload(c, h.cfg.MaxImageSize)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	url, err := h.services.Media.UploadArticleImage(c.Request.Context(), actorFrom(c), data)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// UploadAvatar handles POST /v1/me/avatar (multipart field "file")
func (h *MediaHandler) UploadAvatar(c *gin.Context) {
	data, err := readUpload(c, h.cfg.MaxAvatarSize)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	profile, err := h.services.Media.UploadAvatar(c.Request.Context(), actorFrom(c), data)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// readUpload reads the "file" form field, stopping one byte past limit so
// oversized uploads are rejected without buffering them whole
func readUpload(c *gin.Context, limit int64) ([]byte, error) {
	if limit > 0 {
		// multipart framing adds a little on top of the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("%w: limit is %d bytes", service.ErrTooLarge, limit)
		}
		return nil, &service.ValidationErrors{Errors: fileRequired}
	}
	defer file.Close()

	reader := io.Reader(file)
	if limit > 0 {
		reader = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}
