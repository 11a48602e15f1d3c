package matching

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

// GetMatches handles GET /matches
func (h *Handler) GetMatches(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	matches, err := h.service.FindMatches(c.Request.Context(), actor.MemberID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, MatchesResponse{
		Matches: matches,
		Total:   len(matches),
	})
}

// Browse handles GET /browse?q=&filter=
func (h *Handler) Browse(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req BrowseRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	members, err := h.service.Search(c.Request.Context(), actor.MemberID, req.Query, req.Filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, BrowseResponse{
		Members: members,
		Total:   len(members),
	})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "retryable": errs.Retryable(err)})
}
