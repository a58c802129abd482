package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newsdesk-api/internal/models"
	"github.com/newsdesk-api/internal/service"
	"github.com/rs/zerolog"
)

// UserHandler handles user, role and profile endpoints
type UserHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(services *service.Services, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		services: services,
		log:      log.With().Str("handler", "user").Logger(),
	}
}

// List handles GET /v1/admin/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.services.User.ListUsers(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// AssignRole handles PUT /v1/admin/users/:user_id/role
func (h *UserHandler) AssignRole(c *gin.Context) {
	var req models.RoleAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "role is required")
		return
	}
	row, err := h.services.User.AssignRole(c.Request.Context(), actorFrom(c), c.Param("user_id"), req.Role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// RevokeRole handles DELETE /v1/admin/roles/:role_id
func (h *UserHandler) RevokeRole(c *gin.Context) {
	if err := h.services.User.RevokeRole(c.Request.Context(), actorFrom(c), c.Param("role_id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MyRole handles GET /v1/me/role
func (h *UserHandler) MyRole(c *gin.Context) {
	actor := actorFrom(c)
	role, err := h.services.User.MyRole(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID, "role": role})
}

// GetProfile handles GET /v1/profiles/:user_id
func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.services.Profile.Get(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetOwnProfile handles GET /v1/me/profile
func (h *UserHandler) GetOwnProfile(c *gin.Context) {
	profile, err := h.services.Profile.GetOwn(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateOwnProfile handles PUT /v1/me/profile
func (h *UserHandler) UpdateOwnProfile(c *gin.Context) {
	var input models.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	profile, err := h.services.Profile.UpdateOwn(c.Request.Context(), actorFrom(c), &input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
