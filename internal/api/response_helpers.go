// internal/api/response_helpers.go
package api

import (
	"net/http"
	"strings"
	"time"

	apperrors "github.com/flirlabs/flirbot/internal/errors"
	"github.com/gin-gonic/gin"
)

// ResponseHelper 响应助手类
type ResponseHelper struct{}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success 成功响应
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}

	if len(message) > 0 {
		response.Message = message[0]
	}

	c.JSON(http.StatusOK, response)
}

// Created 创建成功响应
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}

	if len(message) > 0 {
		response.Message = message[0]
	} else {
		response.Message = "资源创建成功"
	}

	c.JSON(http.StatusCreated, response)
}

// sanitizeErrorMessage removes sensitive information from error messages
func sanitizeErrorMessage(message string) string {
	lowered := strings.ToLower(message)
	if strings.Contains(lowered, "api_key") ||
		strings.Contains(lowered, "apikey") ||
		strings.Contains(lowered, "secret") ||
		strings.Contains(lowered, "token") {
		return "An internal error occurred"
	}
	return message
}

// Error 错误响应
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: sanitizeErrorMessage(message),
	}

	if len(details) > 0 {
		apiError.Details = sanitizeErrorMessage(details[0])
	}

	response := &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}

	c.JSON(statusCode, response)
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message, details...)
}

// NotFound 404错误响应
func (rh *ResponseHelper) NotFound(c *gin.Context, resource string, details ...string) {
	message := resource + "不存在"
	code := ErrorNotFound
	if resource != "" {
		code = rh.getResourceNotFoundCode(resource)
	}
	rh.Error(c, http.StatusNotFound, code, message, details...)
}

// InternalError 500错误响应
func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, message, details...)
}

// Conflict 409错误响应
func (rh *ResponseHelper) Conflict(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusConflict, ErrorConflict, message, details...)
}

// FromAppError 按业务错误类型映射HTTP状态码
func (rh *ResponseHelper) FromAppError(c *gin.Context, err error) {
	switch {
	case apperrors.IsNotFoundError(err):
		rh.Error(c, http.StatusNotFound, ErrorNotFound, err.Error())
	case apperrors.IsValidationError(err):
		rh.Error(c, http.StatusBadRequest, ErrorBadRequest, err.Error())
	case apperrors.IsConflictError(err):
		rh.Error(c, http.StatusConflict, ErrorSessionBusy, err.Error())
	case apperrors.IsDeliveryError(err):
		rh.Error(c, http.StatusBadGateway, ErrorDeliveryFailed, err.Error())
	case apperrors.IsGenerationError(err):
		rh.Error(c, http.StatusBadGateway, ErrorGenerationFailed, err.Error())
	default:
		rh.InternalError(c, err.Error())
	}
}

// getRequestID 获取请求ID
func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	if requestID := c.GetString("request_id"); requestID != "" {
		return requestID
	}
	return ""
}

// getResourceNotFoundCode 根据资源类型生成错误代码
func (rh *ResponseHelper) getResourceNotFoundCode(resource string) string {
	switch resource {
	case "会话", "session":
		return ErrorSessionNotFound
	case "场景", "scenario":
		return ErrorScenarioNotFound
	case "角色", "character":
		return ErrorCharacterNotFound
	default:
		return "RESOURCE_NOT_FOUND"
	}
}
