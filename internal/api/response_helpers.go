// internal/api/response_helpers.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/SceneStudio/internal/errors"
)

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

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

// sanitizeErrorMessage 屏蔽可能包含密钥的错误消息
func sanitizeErrorMessage(message string) string {
	lower := strings.ToLower(message)
	for _, pattern := range []string{"api_key", "apikey", "secret", "token", "password"} {
		if strings.Contains(lower, pattern) {
			return "An internal error occurred"
		}
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

	c.Set("error_code", errorCode)
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

// FromError 把服务层错误映射为HTTP状态码和错误代码
func (rh *ResponseHelper) FromError(c *gin.Context, err error) {
	var appError *apperrors.AppError
	if !errors.As(err, &appError) {
		rh.InternalError(c, "服务器内部错误", err.Error())
		return
	}

	switch appError.Type {
	case apperrors.ErrorTypeNotFound:
		rh.Error(c, http.StatusNotFound, appError.Code, appError.Message)
	case apperrors.ErrorTypeValidation:
		rh.Error(c, http.StatusBadRequest, appError.Code, appError.Message)
	default:
		rh.Error(c, http.StatusInternalServerError, appError.Code, appError.Message)
	}
}

// DownloadResponse 下载响应（强制下载）
func (rh *ResponseHelper) DownloadResponse(c *gin.Context, content []byte, filename string, contentType string) {
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Length", fmt.Sprintf("%d", len(content)))
	c.Data(http.StatusOK, contentType, content)
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
	default:
		return "RESOURCE_NOT_FOUND"
	}
}
