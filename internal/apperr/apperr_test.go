package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NotFound("x").HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, Validation("x").HTTPStatus())
	assert.Equal(t, http.StatusForbidden, Forbidden("x").HTTPStatus())
	assert.Equal(t, http.StatusConflict, Conflict("x").HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, RemoteCall("x", nil).HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, Compensation("x", nil).HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Internal("x", nil).HTTPStatus())
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("part not found: %d", 7))
	assert.True(t, IsKind(err, KindNotFound))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := RemoteCall("inventory unreachable", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestUntypedErrorIsUnknown(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}
