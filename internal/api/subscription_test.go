package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"group-access-api/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestSubscribeErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown product", fmt.Errorf("product x: %w", services.ErrNotFound), http.StatusNotFound},
		{"duplicate open subscription", fmt.Errorf("already open: %w", services.ErrConflict), http.StatusConflict},
		{"no group mapping", services.ErrNoGroupMapping, http.StatusBadRequest},
		{"gateway failure", fmt.Errorf("%w: failed to create invite link: timeout", services.ErrGateway), http.StatusBadGateway},
		{"persistence failure", errors.New("driver: bad connection"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := subscribeErrorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, message)
		})
	}
}

func TestRegenerateErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown subscription", fmt.Errorf("subscription 7: %w", services.ErrNotFound), http.StatusNotFound},
		{"closed subscription", fmt.Errorf("subscription 7 is expired: %w", services.ErrConflict), http.StatusConflict},
		{"gateway failure", fmt.Errorf("%w: failed to create invite link: timeout", services.ErrGateway), http.StatusBadGateway},
		{"persistence failure", errors.New("driver: bad connection"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := regenerateErrorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, message)
		})
	}
}
