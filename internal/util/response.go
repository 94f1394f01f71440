package util

import (
	"errors"
	"learner_dashboard/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err), zap.String("path", c.FullPath()))
	InternalServerError(c)
}

// ValidationFailed 以 422 返回字段级校验错误
func ValidationFailed(c *gin.Context, ve *ValidationError) {
	c.JSON(http.StatusUnprocessableEntity, Response{
		Code:    http.StatusUnprocessableEntity,
		Message: ve.Message,
		Data:    ve,
	})
}

// HandleError maps service errors onto the response envelope.
func HandleError(c *gin.Context, err error) {
	if ve, ok := AsValidationError(err); ok {
		ValidationFailed(c, ve)
		return
	}
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrCourseNotFound), errors.Is(err, ErrParcoursNotFound):
		NotFound(c)
	case errors.Is(err, ErrParcoursLocked), errors.Is(err, ErrPermissionDenied):
		Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidCategory), errors.Is(err, ErrInvalidWeek), errors.Is(err, ErrUnknownEventType):
		BadRequest(c, err.Error())
	case errors.Is(err, ErrParcoursCompleted):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredential), errors.Is(err, ErrUnauthorized):
		Unauthorized(c)
	case errors.Is(err, ErrSourceUnavailable):
		Error(c, http.StatusServiceUnavailable, err.Error())
	default:
		LogInternalError(c, err)
	}
}
