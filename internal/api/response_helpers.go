// internal/api/response_helpers.go
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
)

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
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
	}
	if len(message) > 0 {
		response.Message = message[0]
	} else {
		response.Message = "资源创建成功"
	}
	c.JSON(http.StatusCreated, response)
}

// Error 按状态码和错误代码返回失败响应
func (rh *ResponseHelper) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, &APIResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		Timestamp: time.Now(),
	})
}

// BadRequest 参数错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message)
}

// NotFound 资源不存在响应
func (rh *ResponseHelper) NotFound(c *gin.Context, message string) {
	rh.Error(c, http.StatusNotFound, ErrorNotFound, message)
}

// HandleServiceError 将服务层错误映射为HTTP响应
// ScopeViolation 映射为 403，调用方可以据此提示"角色不在此情景中"，
// 而不是笼统的服务器错误
func (rh *ResponseHelper) HandleServiceError(c *gin.Context, err error) {
	var appError *apperrors.AppError
	if !errors.As(err, &appError) {
		rh.Error(c, http.StatusInternalServerError, ErrorInternalError, err.Error())
		return
	}

	switch appError.Type {
	case apperrors.ErrorTypeValidation:
		rh.Error(c, http.StatusBadRequest, appError.Code, appError.Message)
	case apperrors.ErrorTypeNotFound:
		rh.Error(c, http.StatusNotFound, appError.Code, appError.Message)
	case apperrors.ErrorTypeConflict:
		rh.Error(c, http.StatusConflict, appError.Code, appError.Message)
	case apperrors.ErrorTypeScopeViolation:
		rh.Error(c, http.StatusForbidden, appError.Code, appError.Message)
	default:
		rh.Error(c, http.StatusInternalServerError, appError.Code, appError.Message)
	}
}
