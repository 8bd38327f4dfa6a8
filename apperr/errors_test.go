package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	err := Conflict("issue %s already assigned", "abc")

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "conflict: issue abc already assigned", err.Error())
}

func TestAdapterPreservesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Adapter("failed to load issue", cause)

	assert.True(t, errors.Is(err, ErrAdapterFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "failed to load issue", MessageOf(err))
}

func TestAdapterPassesKindedErrorsThrough(t *testing.T) {
	nf := NotFound("issue not found")
	wrapped := fmt.Errorf("loading: %w", nf)

	assert.Same(t, wrapped, Adapter("ignored", wrapped))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindAdapterFailure, KindOf(errors.New("boom")))
	assert.Equal(t, "something went wrong", MessageOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation("bad")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("missing")))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthorized("who")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden("no")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict("taken")))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(errors.New("boom")))
}
