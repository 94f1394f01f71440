package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func handle(err error) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	HandleError(c, err)
	return w
}

func TestHandleErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", NewValidationError("email", "invalid"), http.StatusUnprocessableEntity},
		{"wrapped validation", fmt.Errorf("update: %w", NewValidationError("email", "x")), http.StatusUnprocessableEntity},
		{"user not found", ErrUserNotFound, http.StatusNotFound},
		{"course not found", fmt.Errorf("load: %w", ErrCourseNotFound), http.StatusNotFound},
		{"parcours not found", ErrParcoursNotFound, http.StatusNotFound},
		{"locked", ErrParcoursLocked, http.StatusForbidden},
		{"invalid category", fmt.Errorf("%w: %q", ErrInvalidCategory, "x"), http.StatusBadRequest},
		{"invalid week", ErrInvalidWeek, http.StatusBadRequest},
		{"unknown event type", ErrUnknownEventType, http.StatusBadRequest},
		{"completed", ErrParcoursCompleted, http.StatusConflict},
		{"bad credentials", ErrInvalidCredential, http.StatusUnauthorized},
		{"source down", ErrSourceUnavailable, http.StatusServiceUnavailable},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := handle(tt.err)
			assert.Equal(t, tt.code, w.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestValidationFailedCarriesField(t *testing.T) {
	w := handle(NewValidationError("new_password", "trop court"))

	var resp struct {
		Message string          `json:"message"`
		Data    ValidationError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "trop court", resp.Message)
	assert.Equal(t, "new_password", resp.Data.Field)
}

func TestClampWindow(t *testing.T) {
	assert.Equal(t, DefaultWindowDays, ClampWindow(0))
	assert.Equal(t, DefaultWindowDays, ClampWindow(-3))
	assert.Equal(t, 7, ClampWindow(7))
	assert.Equal(t, MaxWindowDays, ClampWindow(MaxWindowDays+1))
}

func TestMustParseUint(t *testing.T) {
	assert.Equal(t, uint(42), MustParseUint("42"))
	assert.Equal(t, uint(0), MustParseUint("abc"))
	assert.Equal(t, uint(0), MustParseUint("-1"))
}
