package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{NotFound("request not found"), http.StatusNotFound},
		{Forbidden("not yours"), http.StatusForbidden},
		{fmt.Errorf("%w: bad credentials", ErrUnauthorized), http.StatusUnauthorized},
		{InvalidState("only NEW requests can be edited"), http.StatusBadRequest},
		{Conflict("stage already decided"), http.StatusConflict},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.status, HTTPStatus(c.err), c.err.Error())
	}
}

func TestWrappingPreservesSentinels(t *testing.T) {
	err := fmt.Errorf("while reviewing: %w", Conflict("duplicate"))
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, IsClientError(err))
	assert.False(t, IsClientError(errors.New("disk full")))
}
