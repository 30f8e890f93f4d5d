package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", models.ErrEventNotFound, http.StatusNotFound, "event not found"},
		{"invalid input", models.InvalidInput("quantity must be a positive integer"), http.StatusBadRequest, "invalid input: quantity must be a positive integer"},
		{"conflict", models.ErrEmailTaken, http.StatusConflict, "email already registered: conflict"},
		{"unauthenticated", models.ErrUnauthenticated, http.StatusUnauthorized, msgUnauthenticated},
		{"expired", fmt.Errorf("%w: %w", models.ErrInvalidCredential, models.ErrExpiredToken), http.StatusUnauthorized, msgInvalidToken},
		{"revoked", models.ErrRevokedToken, http.StatusUnauthorized, msgInvalidToken},
		{"invalid token", models.ErrInvalidToken, http.StatusUnauthorized, msgInvalidToken},
		{"unknown user", models.ErrUnknownUser, http.StatusUnauthorized, msgInvalidToken},
		{"bad password", models.ErrInvalidCredential, http.StatusUnauthorized, msgInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Set("request_id", "req-1")

			RespondError(c, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var res models.ApiResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.False(t, res.Success)
			assert.Equal(t, tt.body, res.Error)
			assert.Equal(t, "req-1", res.RequestID)
		})
	}
}

func TestRespondError_InsufficientInventoryReportsRemaining(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondError(c, fmt.Errorf("purchase: %w", &models.InsufficientInventoryError{EventID: 1, Requested: 3, Remaining: 2}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"not enough tickets available","remaining_tickets":2,"request_id":""}`, rec.Body.String())
}

func TestRespondError_UnknownErrorsGoToErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondError(c, errors.New("disk on fire"))

	assert.False(t, c.Writer.Written())
	require.Len(t, c.Errors, 1)
	assert.EqualError(t, c.Errors.Last().Err, "disk on fire")
}
