// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeForbidden          ErrorCode = "1003"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 认证授权错误 (2xxx)
	CodeTokenExpired       ErrorCode = "2001"
	CodeTokenInvalid       ErrorCode = "2002"
	CodeTokenMissing       ErrorCode = "2003"
	CodePermissionDenied   ErrorCode = "2004"
	CodeInvalidCredentials ErrorCode = "2005"
	CodeInsufficientCredit ErrorCode = "2006"
	CodeUpgradeRequired    ErrorCode = "2007"

	// 资源错误 (3xxx)
	CodeEbookNotFound    ErrorCode = "3001"
	CodeChapterNotFound  ErrorCode = "3002"
	CodeTemplateNotFound ErrorCode = "3003"
	CodeUserNotFound     ErrorCode = "3004"
	CodeEbookNotReady    ErrorCode = "3005"
	CodeEbookGenerating  ErrorCode = "3006"

	// 生成错误 (4xxx)
	CodeGenerationFailed        ErrorCode = "4001"
	CodeValidationFailed        ErrorCode = "4002"
	CodeLLMCallFailed           ErrorCode = "4005"
	CodeLLMRateLimited          ErrorCode = "4006"
	CodeLLMRateLimitExceeded    ErrorCode = "4007"
	CodeGenerationAborted       ErrorCode = "4008"
	CodeUnsupportedExportFormat ErrorCode = "4009"

	// 外部服务错误 (5xxx)
	CodeDatabaseError    ErrorCode = "5001"
	CodeCacheError       ErrorCode = "5002"
	CodeQueueError       ErrorCode = "5003"
	CodeStorageError     ErrorCode = "5004"
	CodeLLMProviderError ErrorCode = "5005"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，便于 errors.Is(err, ErrEbookNotFound)
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回附带详细信息的副本（预定义错误是共享的，不能原地修改）
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回附带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeValidationFailed, CodeEbookNotReady, CodeUnsupportedExportFormat:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeTokenExpired, CodeTokenInvalid, CodeTokenMissing, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeInsufficientCredit:
		return http.StatusPaymentRequired
	case CodeForbidden, CodePermissionDenied, CodeUpgradeRequired:
		return http.StatusForbidden
	case CodeNotFound, CodeEbookNotFound, CodeChapterNotFound, CodeTemplateNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeEbookGenerating:
		return http.StatusConflict
	case CodeTooManyRequests, CodeLLMRateLimited, CodeLLMRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeLLMCallFailed, CodeLLMProviderError, CodeGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrUnauthorized       = New(CodeUnauthorized, "unauthorized")
	ErrForbidden          = New(CodeForbidden, "forbidden")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrTokenExpired       = New(CodeTokenExpired, "token expired")
	ErrTokenInvalid       = New(CodeTokenInvalid, "token invalid")
	ErrTokenMissing       = New(CodeTokenMissing, "token missing")
	ErrInvalidCredentials = New(CodeInvalidCredentials, "invalid email or password")
	ErrInsufficientCredit = New(CodeInsufficientCredit, "insufficient credits, upgrade your plan or purchase more credits")
	ErrUpgradeRequired    = New(CodeUpgradeRequired, "upgrade to access premium templates")

	ErrEbookNotFound    = New(CodeEbookNotFound, "ebook not found")
	ErrChapterNotFound  = New(CodeChapterNotFound, "chapter not found")
	ErrTemplateNotFound = New(CodeTemplateNotFound, "template not found")
	ErrUserNotFound     = New(CodeUserNotFound, "user not found")
	ErrEbookNotReady    = New(CodeEbookNotReady, "ebook generation is not completed yet")
	ErrEbookGenerating  = New(CodeEbookGenerating, "ebook is already generating")

	ErrGenerationFailed        = New(CodeGenerationFailed, "content generation failed")
	ErrValidationFailed        = New(CodeValidationFailed, "validation failed")
	ErrLLMCallFailed           = New(CodeLLMCallFailed, "LLM call failed")
	ErrLLMRateLimited          = New(CodeLLMRateLimited, "LLM provider rate limited")
	ErrLLMRateLimitExceeded    = New(CodeLLMRateLimitExceeded, "LLM rate limit retries exhausted")
	ErrGenerationAborted       = New(CodeGenerationAborted, "ebook generation aborted")
	ErrUnsupportedExportFormat = New(CodeUnsupportedExportFormat, "unsupported export format")
)

// IsAppError 检查错误链中是否有 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
