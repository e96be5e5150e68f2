package api_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pandora-hackathon/jejak-air/internal/api"
	"github.com/pandora-hackathon/jejak-air/internal/service"
	"github.com/stretchr/testify/assert"
)

// handleError 在测试 gin 上下文里执行错误映射并返回状态码
func handleError(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	api.HandleServiceError(c, err, "do something")
	return recorder
}

// TestHandleServiceError 测试服务层错误到 HTTP 状态码的映射
func TestHandleServiceError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation error maps to 400", service.NewValidationError("volume_kg", "must be positive"), http.StatusBadRequest},
		{"not found maps to 404", service.ErrNotFound, http.StatusNotFound},
		{"permission denied maps to 403", service.ErrPermissionDenied, http.StatusForbidden},
		{"already tested maps to 409", service.ErrBatchAlreadyTested, http.StatusConflict},
		{"already received maps to 409", service.ErrAlreadyReceived, http.StatusConflict},
		{"not eligible maps to 422", service.ErrNotEligible, http.StatusUnprocessableEntity},
		{"unknown error maps to 500", errors.New("db exploded"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := handleError(tc.err)
			assert.Equal(t, tc.expected, recorder.Code)
		})
	}
}

// TestHandleServiceError_WrappedSentinel 测试包装后的业务错误仍被识别
func TestHandleServiceError_WrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("batch %s: %w", "IDM-F0001-20250301-001", service.ErrNotEligible)
	recorder := handleError(wrapped)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	wrapped = fmt.Errorf("farm %d: %w", 12, service.ErrNotFound)
	recorder = handleError(wrapped)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
