package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_StatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewNotFound("patient", nil), http.StatusNotFound},
		{NewBadRequest("no fields to update", nil), http.StatusBadRequest},
		{Unauthorized("Invalid token format", nil), http.StatusUnauthorized},
		{Forbidden("Insufficient permissions", nil), http.StatusForbidden},
		{NewConflict("duplicate", nil), http.StatusConflict},
		{NewInternal(stderrors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Message, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestAs_FindsWrappedAppError(t *testing.T) {
	cause := stderrors.New("no rows")
	err := fmt.Errorf("failed to load bill: %w", NewNotFound("invoice", cause))

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "invoice not found", appErr.Message)
	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrBadRequest))
}
