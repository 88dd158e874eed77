package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches wrapped code", func(t *testing.T) {
		err := Wrap(errors.New("db down"), CodeInternal, "failed to load documents")
		assert.True(t, HasCode(err, CodeInternal))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches inner code through fmt wrapping", func(t *testing.T) {
		inner := New(CodeConflict, "document already advanced")
		err := fmt.Errorf("commit: %w", Wrap(inner, CodeInternal, "retry"))
		assert.True(t, HasCode(err, CodeConflict))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestMessageHidesInternalDetail(t *testing.T) {
	err := Wrap(errors.New("pq: relation documents does not exist"), CodeInternal, "failed to commit")
	assert.Equal(t, "internal error, please retry", Message(err))
	assert.Equal(t, "reason required", Message(New(CodeValidation, "reason required")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:  http.StatusBadRequest,
		CodeForbidden:   http.StatusForbidden,
		CodeConflict:    http.StatusConflict,
		CodeUndoExpired: http.StatusGone,
		CodeUndoInvalid: http.StatusUnprocessableEntity,
		CodeInternal:    http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), code)
	}
}
