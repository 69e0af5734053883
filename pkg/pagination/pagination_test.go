package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newCtx(rawQuery string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return c
}

func TestParse(t *testing.T) {
	t.Run("Should apply defaults when params are absent", func(t *testing.T) {
		p := Parse(newCtx(""))
		assert.Equal(t, DefaultPage, p.Page)
		assert.Equal(t, DefaultLimit, p.Limit)
		assert.Equal(t, 0, p.Offset)
	})

	t.Run("Should compute the offset from page and limit", func(t *testing.T) {
		p := Parse(newCtx("page=3&limit=10"))
		assert.Equal(t, 3, p.Page)
		assert.Equal(t, 10, p.Limit)
		assert.Equal(t, 20, p.Offset)
	})

	t.Run("Should clamp out-of-range values", func(t *testing.T) {
		p := Parse(newCtx("page=-1&limit=9999"))
		assert.Equal(t, DefaultPage, p.Page)
		assert.Equal(t, MaxLimit, p.Limit)

		p = Parse(newCtx("limit=0"))
		assert.Equal(t, DefaultLimit, p.Limit)
	})
}
