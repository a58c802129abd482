package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/service"
	"github.com/rs/zerolog"
)

// SiteHandler handles SEO settings, visitor analytics and the dashboard
type SiteHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewSiteHandler creates a new SiteHandler
func NewSiteHandler(services *service.Services, log zerolog.Logger) *SiteHandler {
	return &SiteHandler{
		services: services,
		log:      log.With().Str("handler", "site").Logger(),
	}
}

// GetSEO handles GET /v1/seo
func (h *SiteHandler) GetSEO(c *gin.Context) {
	settings, err := h.services.SEO.Get(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSEO handles PUT /v1/admin/seo
func (h *SiteHandler) UpdateSEO(c *gin.Context) {
	var settings map[string]string
	if err := c.ShouldBindJSON(&settings); err != nil {
		badRequest(c, "body must be an object of string settings")
		return
	}
	merged, err := h.services.SEO.Update(c.Request.Context(), actorFrom(c), settings)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, merged)
}

// RecordVisit handles POST /v1/visits
func (h *SiteHandler) RecordVisit(c *gin.Context) {
	var req models.VisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "page is required")
		return
	}

	recorded, err := h.services.Visitor.Record(c.Request.Context(), &service.VisitInput{
		Actor:        actorFrom(c),
		SessionToken: sessionFrom(c),
		Page:         req.Page,
		Referrer:     req.Referrer,
		UserAgent:    c.Request.UserAgent(),
		IPAddress:    c.ClientIP(),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"recorded": recorded})
}

// ListVisitors handles GET /v1/admin/visitors?search=&field=&device=&limit=
func (h *SiteHandler) ListVisitors(c *gin.Context) {
	visits, err := h.services.Visitor.List(c.Request.Context(), actorFrom(c), visitorFilter(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visitors": visits})
}

// VisitorStats handles GET /v1/admin/visitors/stats
func (h *SiteHandler) VisitorStats(c *gin.Context) {
	stats, err := h.services.Visitor.Stats(c.Request.Context(), actorFrom(c), visitorFilter(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportVisitors handles GET /v1/admin/visitors/export
func (h *SiteHandler) ExportVisitors(c *gin.Context) {
	w := &csvResponse{c: c, filename: "visitors.csv"}
	if err := h.services.Visitor.ExportCSV(c.Request.Context(), actorFrom(c), visitorFilter(c), w); err != nil {
		if w.started {
			// headers are gone; all we can do is stop
			h.log.Error().Err(err).Msg("Visitor export aborted")
			return
		}
		respondError(c, h.log, err)
	}
}

// Dashboard handles GET /v1/admin/dashboard
func (h *SiteHandler) Dashboard(c *gin.Context) {
	summary, err := h.services.Dashboard.Summary(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func visitorFilter(c *gin.Context) models.VisitorFilter {
	return models.VisitorFilter{
		Search:      c.Query("search"),
		SearchField: models.VisitorSearchField(c.DefaultQuery("field", string(models.SearchAll))),
		DeviceType:  c.Query("device"),
		Limit:       queryInt(c, "limit"),
	}
}

// csvResponse sets the download headers on the first write so that errors
// raised before any output can still be reported as JSON
type csvResponse struct {
	c        *gin.Context
	filename string
	started  bool
}

func (w *csvResponse) Write(p []byte) (int, error) {
	if !w.started {
		w.started = true
		w.c.Header("Content-Type", "text/csv")
		w.c.Header("Content-Disposition", "attachment; filename="+w.filename)
		w.c.Status(http.StatusOK)
	}
	n, err := w.c.Writer.Write(p)
	w.c.Writer.Flush()
	return n, err
}
