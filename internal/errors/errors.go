// Package errors defines the application error taxonomy together with the
// retry and circuit breaking helpers used at collaborator boundaries.
package errors

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation   = "E100"
	CodeStorage      = "E200"
	CodeCollaborator = "E300"
	CodeState        = "E400"
	CodeRateLimit    = "E500"
	CodeReset        = "E600"
	CodeBusy         = "E700"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// CodeOf returns the AppError code found in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Code
	}
	return ""
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: fmt.Sprintf("資料格式錯誤：%s", msg),
		Severity:    SeverityLow,
	}
}

func NewStorageError(op string, cause error) *AppError {
	return &AppError{
		Code:        CodeStorage,
		Message:     fmt.Sprintf("storage error during %s", op),
		UserMessage: "系統暫時無法存取資料，請稍後再試。",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewCollaboratorError(name string, cause error) *AppError {
	return &AppError{
		Code:        CodeCollaborator,
		Message:     fmt.Sprintf("collaborator %s failed", name),
		UserMessage: "服務暫時無法使用，請稍後再試。",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        CodeState,
		Message:     msg,
		UserMessage: "目前的面試階段無法執行此操作。",
		Severity:    SeverityMedium,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("請求過於頻繁，請在 %d 秒後再試。", retryAfter),
		Severity:    SeverityLow,
	}
}

// NewResetError reports a reset that did not fully complete. The session
// must be treated as not reset.
func NewResetError(cause error) *AppError {
	return &AppError{
		Code:        CodeReset,
		Message:     "interview reset failed",
		UserMessage: "重置失敗，請再試一次。",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewBusyError(cause error) *AppError {
	return &AppError{
		Code:        CodeBusy,
		Message:     "another request for this user is still running",
		UserMessage: "上一則訊息仍在處理中，請稍候再試。",
		Severity:    SeverityLow,
		Retryable:   true,
		cause:       cause,
	}
}
