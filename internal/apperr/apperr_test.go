package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("assign: %w", NotFound("order not found"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, Is(err, KindNotFound))
	assert.Equal(t, "order not found", Message(err))
}

func TestUnknownErrorIsInternal(t *testing.T) {
	err := errors.New("connection reset")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal error", Message(err))
	assert.Equal(t, "internal error", Message(Internal(err)))
	assert.ErrorIs(t, Internal(err), err)
}

func TestStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, Status(kind), kind)
	}
}
