package handler

import (
	"net/http"

	"nfa-backend/internal/middleware"
	"nfa-backend/internal/service"
	"nfa-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler groups everything behind the elevated-role gate: statistics,
// user management, override decisions and file administration.
type AdminHandler struct {
	approvalService service.ApprovalService
	queryService    service.RequestQueryService
	userService     service.UserService
	auth            *middleware.AuthMiddleware
	log             *zap.Logger
}

func NewAdminHandler(
	approvalService service.ApprovalService,
	queryService service.RequestQueryService,
	userService service.UserService,
	auth *middleware.AuthMiddleware,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		approvalService: approvalService,
		queryService:    queryService,
		userService:     userService,
		auth:            auth,
		log:             log,
	}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin", h.auth.RequireElevated())
	{
		admin.GET("/total-requests", h.TotalRequests)
		admin.GET("/pending-requests", h.PendingRequests)
		admin.GET("/users/pending-requests", h.PendingPerUser)

		admin.GET("/all-requests", h.AllRequests)
		admin.GET("/requests/:id/events", h.RequestEvents)

		admin.POST("/requests/:id/approve", h.DirectApprove)
		admin.POST("/requests/approve", h.Decide)
		admin.POST("/requests/stage-approve", h.StageOverride)
		admin.POST("/requests/:id/comments", h.AddComment)

		admin.POST("/requests/:id/files", h.AddFiles)
		admin.DELETE("/requests/:id/files", h.RemoveFile)
		admin.GET("/users/:id/files", h.UserFiles)
		admin.GET("/files", h.UserFilesSummary)

		admin.POST("/users", h.CreateUser)
		admin.PUT("/users/:id", h.UpdateUser)
		admin.DELETE("/users/:id", h.DeleteUser)

		admin.DELETE("/sessions/clear-all", h.ClearAllSessions)
	}
}

// TotalRequests returns the overall request count
func (h *AdminHandler) TotalRequests(c *gin.Context) {
	total, err := h.queryService.TotalRequests(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]int{"total_requests": total}))
}

// PendingRequests returns the count of NEW and IN_PROGRESS requests
func (h *AdminHandler) PendingRequests(c *gin.Context) {
	pending, err := h.queryService.PendingRequests(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]int{"pending_requests": pending}))
}

// PendingPerUser returns the pending counts grouped by initiator
func (h *AdminHandler) PendingPerUser(c *gin.Context) {
	counts, err := h.queryService.PendingPerUser(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, counts))
}

// AllRequests returns every request without visibility filtering
func (h *AdminHandler) AllRequests(c *gin.Context) {
	views, err := h.queryService.ListAll(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, views))
}

// RequestEvents returns the structured audit trail of one request
func (h *AdminHandler) RequestEvents(c *gin.Context) {
	events, err := h.queryService.ListEvents(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, events))
}

// DirectApprove stamps the distinct "Approved by ADMIN" status on a request
func (h *AdminHandler) DirectApprove(c *gin.Context) {
	view, err := h.approvalService.AdminApprove(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// Decide forces a terminal APPROVED or REJECTED status
func (h *AdminHandler) Decide(c *gin.Context) {
	var in service.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	view, err := h.approvalService.AdminDecide(c.Request.Context(), callerID(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// StageOverride decides the current pending stage on behalf of its approver
func (h *AdminHandler) StageOverride(c *gin.Context) {
	var in service.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	view, err := h.approvalService.AdminStageOverride(c.Request.Context(), callerID(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// AddComment appends to the admin comment trail of a request
func (h *AdminHandler) AddComment(c *gin.Context) {
	comment := c.PostForm("comment")
	if comment == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "comment is required"))
		return
	}
	view, err := h.approvalService.AddAdminComment(c.Request.Context(), callerID(c), c.Param("id"), comment)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// AddFiles attaches files to any request on the initiator's behalf
func (h *AdminHandler) AddFiles(c *gin.Context) {
	uploads, err := readUploads(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to read uploaded files"))
		return
	}
	files, err := h.approvalService.AddFiles(c.Request.Context(), callerID(c), c.Param("id"), uploads)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, files))
}

// RemoveFile detaches one attachment, identified by its file_url
func (h *AdminHandler) RemoveFile(c *gin.Context) {
	fileURL := c.Query("file_url")
	if fileURL == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "file_url is required"))
		return
	}
	if err := h.approvalService.RemoveFile(c.Request.Context(), callerID(c), c.Param("id"), fileURL); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "File removed"))
}

// UserFiles lists every attachment uploaded across one user's requests
func (h *AdminHandler) UserFiles(c *gin.Context) {
	files, err := h.queryService.UserFiles(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, files))
}

// UserFilesSummary groups attachments by initiator
func (h *AdminHandler) UserFilesSummary(c *gin.Context) {
	summary, err := h.queryService.UserFilesSummary(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// CreateUser creates a user with an arbitrary role set
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	user, err := h.userService.AdminCreateUser(c.Request.Context(), callerID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// UpdateUser applies a partial update to a user
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req service.AdminEditUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	user, err := h.userService.AdminUpdateUser(c.Request.Context(), callerID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// DeleteUser removes a user; refused while requests still reference them
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.AdminDeleteUser(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "User deleted successfully"))
}

// ClearAllSessions revokes every session token in the system
func (h *AdminHandler) ClearAllSessions(c *gin.Context) {
	if err := h.userService.AdminClearAllSessions(c.Request.Context(), callerID(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "All sessions cleared"))
}
