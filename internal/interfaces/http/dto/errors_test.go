package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInsufficientInventory, http.StatusUnprocessableEntity},
		{ErrCodeProjectNotOpen, http.StatusUnprocessableEntity},
		{ErrCodeOrderNotFound, http.StatusNotFound},
		{ErrCodeOrderAlreadyFinalized, http.StatusConflict},
		{ErrCodeOrderExpired, http.StatusUnprocessableEntity},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestListRequest_Normalize(t *testing.T) {
	t.Run("applies defaults for empty request", func(t *testing.T) {
		req := ListRequest{}
		req.Normalize()

		assert.Equal(t, 1, req.Page)
		assert.Equal(t, 20, req.PageSize)
		assert.Equal(t, "created_at", req.OrderBy)
		assert.Equal(t, "desc", req.OrderDir)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		req := ListRequest{Page: 3, PageSize: 50, OrderBy: "expires_at", OrderDir: "asc"}
		req.Normalize()

		assert.Equal(t, 3, req.Page)
		assert.Equal(t, 50, req.PageSize)
		assert.Equal(t, "expires_at", req.OrderBy)
		assert.Equal(t, "asc", req.OrderDir)
	})
}
