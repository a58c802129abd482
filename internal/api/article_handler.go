package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/service"
	"github.com/rs/zerolog"
)

// ArticleHandler handles article endpoints for readers and the admin console
type ArticleHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// ListPublished handles GET /v1/articles?category=&limit=
func (h *ArticleHandler) ListPublished(c *gin.Context) {
	articles, err := h.services.Article.ListPublished(c.Request.Context(), c.Query("category"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// Breaking handles GET /v1/articles/breaking
func (h *ArticleHandler) Breaking(c *gin.Context) {
	articles, err := h.services.Article.Breaking(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// Featured handles GET /v1/articles/featured
func (h *ArticleHandler) Featured(c *gin.Context) {
	article, err := h.services.Article.Featured(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// Popular handles GET /v1/articles/popular?limit=
func (h *ArticleHandler) Popular(c *gin.Context) {
	articles, err := h.services.View.PopularArticles(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// CategoryPopularity handles GET /v1/categories/popularity
func (h *ArticleHandler) CategoryPopularity(c *gin.Context) {
	stats, err := h.services.View.CategoryPopularity(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": stats})
}

// GetBySlug handles GET /v1/articles/:slug
func (h *ArticleHandler) GetBySlug(c *gin.Context) {
	article, err := h.services.Article.GetBySlug(c.Request.Context(), actorFrom(c), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// RecordView handles POST /v1/articles/:id/views
func (h *ArticleHandler) RecordView(c *gin.Context) {
	id := c.Param("slug")
	counted, err := h.services.View.RecordView(c.Request.Context(), id, sessionFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": id, "counted": counted})
}

// ViewCount handles GET /v1/articles/:id/views
func (h *ArticleHandler) ViewCount(c *gin.Context) {
	id := c.Param("slug")
	count, err := h.services.View.LiveViewCount(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article_id": id, "view_count": count})
}

// AdminList handles GET /v1/admin/articles
func (h *ArticleHandler) AdminList(c *gin.Context) {
	articles, err := h.services.Article.ListForAdmin(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// AdminGet handles GET /v1/admin/articles/:id
func (h *ArticleHandler) AdminGet(c *gin.Context) {
	article, err := h.services.Article.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// Create handles POST /v1/admin/articles
func (h *ArticleHandler) Create(c *gin.Context) {
	var input models.ArticleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	article, err := h.services.Article.Create(c.Request.Context(), actorFrom(c), &input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, article)
}

// Update handles PUT /v1/admin/articles/:id
func (h *ArticleHandler) Update(c *gin.Context) {
	var input models.ArticleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	article, err := h.services.Article.Update(c.Request.Context(), actorFrom(c), c.Param("id"), &input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// SetStatus handles POST /v1/admin/articles/:id/status
func (h *ArticleHandler) SetStatus(c *gin.Context) {
	var req models.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	status, ok := models.ParseArticleStatus(string(req.Status))
	if !ok {
		badRequest(c, "status must be one of: draft, pending_review, published")
		return
	}

	article, err := h.services.Article.SetStatus(c.Request.Context(), actorFrom(c), c.Param("id"), status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// Delete handles DELETE /v1/admin/articles/:id
func (h *ArticleHandler) Delete(c *gin.Context) {
	if err := h.services.Article.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// queryInt reads an optional integer query parameter; malformed values read as zero
func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}
