package rating

import (
	"net/http"

	"skillswap/internal/errs"
	"skillswap/internal/identity"
	"skillswap/internal/service/swap"

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

// SubmitRating handles POST /swaps/:id/rating
func (h *Handler) SubmitRating(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := swap.ParseID(c)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.service.SubmitRating(c.Request.Context(), actor, id, req.Score, req.Feedback)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "retryable": errs.Retryable(err)})
}
