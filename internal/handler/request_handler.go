package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"nfa-backend/internal/middleware"
	"nfa-backend/internal/service"
	"nfa-backend/pkg/pagination"
	"nfa-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RequestHandler struct {
	approvalService service.ApprovalService
	queryService    service.RequestQueryService
	auth            *middleware.AuthMiddleware
	log             *zap.Logger
}

func NewRequestHandler(
	approvalService service.ApprovalService,
	queryService service.RequestQueryService,
	auth *middleware.AuthMiddleware,
	log *zap.Logger,
) *RequestHandler {
	return &RequestHandler{
		approvalService: approvalService,
		queryService:    queryService,
		auth:            auth,
		log:             log,
	}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/requests", h.auth.RequireAuth())
	{
		requests.POST("", h.Submit)
		requests.GET("", h.List)
		requests.GET("/:id", h.Get)
		requests.POST("/review", h.Review)
		requests.POST("/:id/edit", h.Edit)
		requests.POST("/:id/reinitiate", h.Reinitiate)
		requests.DELETE("/:id/withdraw", h.Withdraw)
		requests.POST("/:id/files", h.UploadFiles)
		requests.GET("/:id/pdf", h.DownloadPDF)
	}
}

// contentFromForm reads the NFA content fields out of a multipart form.
func contentFromForm(c *gin.Context) service.RequestContent {
	return service.RequestContent{
		Subject:     c.PostForm("subject"),
		Description: c.PostForm("description"),
		Area:        c.PostForm("area"),
		Project:     c.PostForm("project"),
		Tower:       c.PostForm("tower"),
		Department:  c.PostForm("department"),
		References:  c.PostForm("references"),
		Priority:    c.PostForm("priority"),
	}
}

// approversFromForm accepts the chain as a JSON array string, a
// comma-separated string, or repeated form values.
func approversFromForm(c *gin.Context) []string {
	raw := strings.TrimSpace(c.PostForm("approvers"))
	if strings.HasPrefix(raw, "[") {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err == nil {
			return ids
		}
	}
	if strings.Contains(raw, ",") {
		return strings.Split(raw, ",")
	}
	if values, ok := c.GetPostFormArray("approvers"); ok && len(values) > 0 {
		return values
	}
	return nil
}

// Submit creates a new NFA from a multipart form (content, chain, attachments)
func (h *RequestHandler) Submit(c *gin.Context) {
	uploads, err := readUploads(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to read uploaded files"))
		return
	}
	in := service.SubmitRequestInput{
		SupervisorID: c.PostForm("supervisor_id"),
		Content:      contentFromForm(c),
		Approvers:    approversFromForm(c),
		Files:        uploads,
	}

	view, err := h.approvalService.Submit(c.Request.Context(), callerID(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, view))
}

// List returns the requests visible to the caller, filtered and paginated
func (h *RequestHandler) List(c *gin.Context) {
	p := pagination.Parse(c)
	filter := service.RequestFilter{
		NoteID:    c.Query("note_id"),
		Date:      c.Query("date"),
		Initiator: c.Query("initiator"),
		Filter:    c.Query("filter"),
		Page:      p.Page,
		Limit:     p.Limit,
	}

	views, total, err := h.queryService.List(c.Request.Context(), callerID(c), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": views,
		"total":    total,
		"page":     p.Page,
		"limit":    p.Limit,
	}))
}

// Get returns the full projection of one request
func (h *RequestHandler) Get(c *gin.Context) {
	view, err := h.queryService.Get(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// Review applies the caller's decision on the current pending stage
func (h *RequestHandler) Review(c *gin.Context) {
	var in service.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	view, err := h.approvalService.Review(c.Request.Context(), callerID(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// Edit replaces content and chain of a NEW request
func (h *RequestHandler) Edit(c *gin.Context) {
	uploads, err := readUploads(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to read uploaded files"))
		return
	}
	in := service.EditRequestInput{
		Content:   contentFromForm(c),
		Approvers: approversFromForm(c),
		Files:     uploads,
	}

	view, err := h.approvalService.Edit(c.Request.Context(), callerID(c), c.Param("id"), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// Reinitiate restarts a REJECTED request, in place or as a fresh copy
func (h *RequestHandler) Reinitiate(c *gin.Context) {
	uploads, err := readUploads(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to read uploaded files"))
		return
	}

	in := service.ReinitiateInput{
		EditDetails: c.PostForm("edit_details") == "true",
		Files:       uploads,
	}
	// Content and chain are optional in clone mode; only attach them when the
	// form actually carries a new detail set.
	if in.EditDetails || c.PostForm("subject") != "" {
		content := contentFromForm(c)
		in.Content = &content
		in.Approvers = approversFromForm(c)
	}

	view, err := h.approvalService.Reinitiate(c.Request.Context(), callerID(c), c.Param("id"), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, view))
}

// Withdraw deletes a NEW request owned by the caller
func (h *RequestHandler) Withdraw(c *gin.Context) {
	if err := h.approvalService.Withdraw(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Request withdrawn"))
}

// UploadFiles attaches additional files to an existing request
func (h *RequestHandler) UploadFiles(c *gin.Context) {
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

// DownloadPDF streams the printable document of a fully approved NFA. The
// access token may arrive as the access_token query parameter so the link
// works from a plain anchor tag.
func (h *RequestHandler) DownloadPDF(c *gin.Context) {
	id := c.Param("id")
	data, err := h.queryService.RenderPDF(c.Request.Context(), callerID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="nfa_`+id+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
