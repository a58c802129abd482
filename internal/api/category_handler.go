package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/service"
	"github.com/rs/zerolog"
)

// CategoryHandler handles category registry endpoints
type CategoryHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(services *service.Services, log zerolog.Logger) *CategoryHandler {
	return &CategoryHandler{
		services: services,
		log:      log.With().Str("handler", "category").Logger(),
	}
}

// ListActive handles GET /v1/categories
func (h *CategoryHandler) ListActive(c *gin.Context) {
	categories, err := h.services.Category.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// List handles GET /v1/admin/categories
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.services.Category.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// Create handles POST /v1/admin/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var input models.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	category, err := h.services.Category.Create(c.Request.Context(), actorFrom(c), &input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// Update handles PUT /v1/admin/categories/:name
func (h *CategoryHandler) Update(c *gin.Context) {
	var update models.CategoryUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	category, err := h.services.Category.Update(c.Request.Context(), actorFrom(c), c.Param("name"), &update)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// Delete handles DELETE /v1/admin/categories/:name
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.services.Category.Delete(c.Request.Context(), actorFrom(c), c.Param("name")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
