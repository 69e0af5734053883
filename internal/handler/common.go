package handler

import (
	"io"
	"net/http"

	"nfa-backend/internal/apperr"
	"nfa-backend/internal/middleware"
	"nfa-backend/internal/service"
	"nfa-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps taxonomy errors to their HTTP status. Unexpected errors
// are logged with full detail and surfaced as an opaque 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("internal error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, response.Error(status, "Internal server error"))
		return
	}
	c.JSON(status, response.Error(status, err.Error()))
}

func callerID(c *gin.Context) string {
	id, _ := c.Get(middleware.CtxUserID)
	s, _ := id.(string)
	return s
}

// readUploads extracts the "files" part of a multipart form. An absent form
// or part is not an error; attachments are optional on most routes.
func readUploads(c *gin.Context) ([]service.FileUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	var uploads []service.FileUpload
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, service.FileUpload{Name: fh.Filename, Content: content})
	}
	return uploads, nil
}
