package swap

import (
	"net/http"
	"strconv"

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

// ParseID reads a snowflake id from the :id path parameter.
func ParseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return 0, false
	}
	return id, true
}

// CreateRequest handles POST /swaps
func (h *Handler) CreateRequest(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, r)
}

// ListRequests handles GET /swaps?view=
func (h *Handler) ListRequests(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requests, err := h.service.ListForMember(c.Request.Context(), actor, req.View)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Requests: requests,
		Total:    len(requests),
	})
}

// GetRequest handles GET /swaps/:id
func (h *Handler) GetRequest(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := ParseID(c)
	if !ok {
		return
	}

	r, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

// Transition returns a handler for POST /swaps/:id/<transition>
func (h *Handler) Transition(t Transition) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := identity.ActorFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		id, ok := ParseID(c)
		if !ok {
			return
		}

		r, err := h.service.Transition(c.Request.Context(), actor, id, t)
		if err != nil {
			h.handleError(c, err)
			return
		}

		c.JSON(http.StatusOK, r)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "retryable": errs.Retryable(err)})
}
