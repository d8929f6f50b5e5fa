package response

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Response is the unified API response format.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries the machine-readable error detail for failed requests.
type ErrorBody struct {
	Code       string      `json:"code"`
	Retryable  bool        `json:"retryable"`
	RetryAfter int         `json:"retry_after_seconds,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// AppError represents a structured application error with HTTP status,
// a machine code, and an optional retry hint.
type AppError struct {
	HTTPStatus int         // HTTP status code (e.g. 400, 402, 429, 502)
	Code       string      // Machine-readable error code
	Message    string      // Human-readable error message
	Retryable  bool        // Whether the caller may retry
	RetryAfter int         // Seconds until a retry is worthwhile (0 = unknown)
	Details    interface{} // Optional structured payload (e.g. quota usage)
}

func (e *AppError) Error() string {
	return e.Message
}

// Error category codes.
const (
	CodeInvalidRequest  = "invalid_request"
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeQuotaExceeded   = "quota_exceeded"
	CodeRateLimited     = "rate_limited"
	CodeNoHealthyModels = "no_healthy_models"
	CodeGenerationError = "generation_failed"
	CodeInternal        = "internal_error"
)

// Pre-defined error constructors

func NewBadRequest(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Code: CodeInvalidRequest, Message: msg}
}

func NewUnauthorized(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Code: CodeUnauthorized, Message: msg}
}

func NewForbidden(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusForbidden, Code: CodeForbidden, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Code: CodeNotFound, Message: msg}
}

func NewServerError(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusInternalServerError, Code: CodeInternal, Message: msg}
}

// NewQuotaExceeded builds a 402 error. details should carry the current
// subscription usage so the client can render an upgrade prompt.
func NewQuotaExceeded(msg string, details interface{}) *AppError {
	return &AppError{
		HTTPStatus: http.StatusPaymentRequired,
		Code:       CodeQuotaExceeded,
		Message:    msg,
		Details:    details,
	}
}

// NewRateLimited builds a 429 error with a Retry-After hint in seconds.
func NewRateLimited(msg string, retryAfter int) *AppError {
	return &AppError{
		HTTPStatus: http.StatusTooManyRequests,
		Code:       CodeRateLimited,
		Message:    msg,
		Retryable:  true,
		RetryAfter: retryAfter,
	}
}

// NewRoutingFailure builds a 500 error for "no healthy model" conditions.
// Retryable: model health is transient infrastructure state.
func NewRoutingFailure(msg string) *AppError {
	return &AppError{
		HTTPStatus: http.StatusInternalServerError,
		Code:       CodeNoHealthyModels,
		Message:    msg,
		Retryable:  true,
	}
}

// NewGenerationFailure builds a 502 error for provider errors and timeouts.
func NewGenerationFailure(msg string) *AppError {
	return &AppError{
		HTTPStatus: http.StatusBadGateway,
		Code:       CodeGenerationError,
		Message:    msg,
		Retryable:  true,
	}
}

// --- Gin response helpers ---

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

// Created sends a 201 Created response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error sends an error response. If err is an *AppError, its code, status,
// and retry hint are used; otherwise a generic 500 is returned. A raw
// provider or database message is never exposed through AppError paths.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(appErr.RetryAfter))
		}
		c.JSON(appErr.HTTPStatus, Response{
			Code:    appErr.HTTPStatus,
			Message: appErr.Message,
			Error: &ErrorBody{
				Code:       appErr.Code,
				Retryable:  appErr.Retryable,
				RetryAfter: appErr.RetryAfter,
				Details:    appErr.Details,
			},
		})
		return
	}
	c.JSON(http.StatusInternalServerError, Response{
		Code:    http.StatusInternalServerError,
		Message: err.Error(),
		Error:   &ErrorBody{Code: CodeInternal},
	})
}

// Convenience error response functions

func BadRequest(c *gin.Context, msg string) {
	Error(c, NewBadRequest(msg))
}

func Unauthorized(c *gin.Context, msg string) {
	Error(c, NewUnauthorized(msg))
}

func Forbidden(c *gin.Context, msg string) {
	Error(c, NewForbidden(msg))
}

func NotFound(c *gin.Context, msg string) {
	Error(c, NewNotFound(msg))
}

func ServerError(c *gin.Context, msg string) {
	Error(c, NewServerError(msg))
}
