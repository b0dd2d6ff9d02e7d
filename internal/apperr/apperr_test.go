package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tts := []struct {
		name string
		err  error
		kind Kind
	}{
		{"plain error", errors.New("boom"), Infrastructure},
		{"not found", NotFoundf("folder %d not found", 3), NotFound},
		{"conflict", Conflictf("folder not empty"), Conflict},
		{"wrapped by fmt", fmt.Errorf("outer: %w", Deniedf("no")), Denied},
		{"wrap keeps kind", Wrap(Invalidf("bad level"), "grant"), Invalid},
		{"wrap plain", Wrap(sql.ErrConnDone, "query"), Infrastructure},
		{"with kind", WithKind(errors.New("UNIQUE constraint failed"), Conflict, "duplicate"), Conflict},
	}

	for _, tt := range tts {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "noop"))
	assert.NoError(t, WithKind(nil, Conflict, "noop"))
	assert.False(t, Is(nil, Infrastructure))
}

func TestWrapUnwraps(t *testing.T) {
	err := Wrap(sql.ErrConnDone, "find permission")
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Equal(t, "find permission: sql: connection is already closed", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFoundf("x")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflictf("x")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Deniedf("x")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Invalidf("x")))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthenticatedf("x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("x")))
}

func TestMessageHidesInfrastructure(t *testing.T) {
	assert.Equal(t, "internal server error", Message(Wrap(errors.New("dial tcp: refused"), "connect")))
	assert.Equal(t, "document not found", Message(NotFoundf("document not found")))
}
