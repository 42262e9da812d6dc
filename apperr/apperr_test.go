package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validationf("invalid month %q", "jan"), http.StatusBadRequest},
		{"not found", NotFoundf("member not found"), http.StatusNotFound},
		{"conflict", New(Conflict, "duplicate"), http.StatusConflict},
		{"wrapped not found", fmt.Errorf("lookup: %w", NotFoundf("gone")), http.StatusNotFound},
		{"too large", New(TooLarge, "request body too large"), http.StatusRequestEntityTooLarge},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	cause := errors.New("connection refused")

	assert.Equal(t, "Invalid year parameter", PublicMessage(Validationf("Invalid year parameter")))
	assert.Equal(t, "find members: connection refused", PublicMessage(Wrap(Internal, "find members", cause)))
	assert.Equal(t, "connection refused", PublicMessage(cause))
	assert.True(t, errors.Is(Wrap(Internal, "find members", cause), cause))
}
