package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pandora-hackathon/jejak-air/internal/service"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			} else {
				Error(c, http.StatusInternalServerError, "internal server error", err.Error())
			}
		}
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// HandleServiceError 将服务层错误映射为 HTTP 响应:
// 验证错误 400,未找到 404,权限 403,冲突类(重复检测/重复签收)409,
// 不可发运 422,其余 500
func HandleServiceError(c *gin.Context, err error, operation string) {
	switch {
	case service.IsValidation(err):
		Error(c, http.StatusBadRequest, "invalid request", err.Error())
	case service.IsNotFound(err):
		Error(c, http.StatusNotFound, "resource not found", err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		Error(c, http.StatusForbidden, "permission denied", err.Error())
	case errors.Is(err, service.ErrBatchAlreadyTested), errors.Is(err, service.ErrAlreadyReceived):
		Error(c, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrNotEligible):
		Error(c, http.StatusUnprocessableEntity, "batch not eligible for shipment", err.Error())
	default:
		Error(c, http.StatusInternalServerError, "failed to "+operation, err.Error())
	}
}
