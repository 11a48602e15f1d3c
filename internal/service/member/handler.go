package member

import (
	"net/http"

	"skillswap/internal/errs"
	"skillswap/internal/identity"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

// Register handles POST /members
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, m)
}

// GetMember handles GET /members/:id. Private and banned members are only
// visible to themselves and to admins.
func (h *Handler) GetMember(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	m, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	if (!m.Public || m.Banned) && m.ID != actor.MemberID && !actor.Admin {
		h.handleError(c, ErrMemberNotFound)
		return
	}

	c.JSON(http.StatusOK, m)
}

// GetProfile handles GET /profile
func (h *Handler) GetProfile(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	m, err := h.service.Get(c.Request.Context(), actor.MemberID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// UpdateProfile handles PUT /profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.service.UpdateProfile(c.Request.Context(), actor.MemberID, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// UpdateSkills handles PUT /profile/skills
func (h *Handler) UpdateSkills(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req UpdateSkillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.service.UpsertSkills(c.Request.Context(), actor.MemberID, req.Offered, req.Wanted)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// UpdateVisibility handles PUT /profile/visibility
func (h *Handler) UpdateVisibility(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.service.SetVisibility(c.Request.Context(), actor.MemberID, req.Public)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// handleError maps domain errors to HTTP status codes
func (h *Handler) handleError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "retryable": errs.Retryable(err)})
}
