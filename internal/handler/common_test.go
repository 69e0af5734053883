package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"nfa-backend/internal/apperr"
	"nfa-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	run := func(err error) (int, response.Response) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/requests", nil)
		respondError(c, log, err)

		var body response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return w.Code, body
	}

	t.Run("Should map taxonomy errors to their status with the message", func(t *testing.T) {
		code, body := run(apperr.InvalidState("only NEW requests can be edited"))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "error", body.Status)
		assert.Contains(t, body.Error, "only NEW requests can be edited")

		code, _ = run(apperr.Conflict("stage already decided"))
		assert.Equal(t, http.StatusConflict, code)
	})

	t.Run("Should hide internal errors behind an opaque 500", func(t *testing.T) {
		code, body := run(errors.New("pq: connection refused"))
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "Internal server error", body.Error)
		assert.NotContains(t, body.Error, "pq:")
	})
}
