package moderation

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

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// SubmitReport handles POST /reports
func (h *Handler) SubmitReport(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.SubmitReport(c.Request.Context(), actor, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// SubmitSkill handles POST /skills/submissions
func (h *Handler) SubmitSkill(c *gin.Context) {
	actor, ok := identity.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req SubmitSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.service.SubmitSkill(c.Request.Context(), actor, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// ListReports handles GET /admin/reports
func (h *Handler) ListReports(c *gin.Context) {
	actor, _ := identity.ActorFrom(c)

	reports, err := h.service.ListPendingReports(c.Request.Context(), actor)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ReportsResponse{Reports: reports, Total: len(reports)})
}

// ListSubmissions handles GET /admin/submissions
func (h *Handler) ListSubmissions(c *gin.Context) {
	actor, _ := identity.ActorFrom(c)

	submissions, err := h.service.ListPendingSubmissions(c.Request.Context(), actor)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SubmissionsResponse{Submissions: submissions, Total: len(submissions)})
}

// ApproveSkill handles POST /admin/submissions/:id/approve
func (h *Handler) ApproveSkill(c *gin.Context) {
	actor, _ := identity.ActorFrom(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	sub, err := h.service.ApproveSkill(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

// RejectSkill handles POST /admin/submissions/:id/reject
func (h *Handler) RejectSkill(c *gin.Context) {
	actor, _ := identity.ActorFrom(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req RejectSkillRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	sub, err := h.service.RejectSkill(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

// ResolveReport handles POST /admin/reports/:id/resolve
func (h *Handler) ResolveReport(c *gin.Context) {
	actor, _ := identity.ActorFrom(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	report, err := h.service.ResolveReport(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// DismissReport handles POST /admin/reports/:id/dismiss
func (h *Handler) DismissReport(c *gin.Context) {
	actor, _ := identity.ActorFrom(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	report, err := h.service.DismissReport(c.Request.Context(), actor, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// BanMember handles POST /admin/members/:id/ban. A partially applied
// cascade answers 207 with per-request outcomes.
func (h *Handler) BanMember(c *gin.Context) {
	actor, _ := identity.ActorFrom(c)

	result, err := h.service.BanMember(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	status := http.StatusOK
	if result.Failed() {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

// UnbanMember handles POST /admin/members/:id/unban
func (h *Handler) UnbanMember(c *gin.Context) {
	actor, _ := identity.ActorFrom(c)

	m, err := h.service.UnbanMember(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// Broadcast handles POST /admin/broadcast
func (h *Handler) Broadcast(c *gin.Context) {
	actor, _ := identity.ActorFrom(c)

	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.service.Broadcast(c.Request.Context(), actor, req.Message)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"recipients": n})
}

// Overview handles GET /admin/overview
func (h *Handler) Overview(c *gin.Context) {
	actor, _ := identity.ActorFrom(c)

	o, err := h.service.Overview(c.Request.Context(), actor)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "retryable": errs.Retryable(err)})
}
