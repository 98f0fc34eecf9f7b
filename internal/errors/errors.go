// Package errors provides unified error handling across pocket-meta.
//
// Every failure in the generation pipeline is represented as an AppError
// carrying a stable ErrorCode. The generation client and the formatter return
// tagged errors; the orchestrator converts them into user-facing messages
// and counts them in the usage statistics. The CLI and HTTP layers format the
// same AppError through the handlers in handlers.go.
//
// USAGE PATTERNS:
// - Create errors: use constructors such as APIKeyMissingError(), ParsingError()
// - Wrap errors: use Wrap() to attach a code to an underlying cause
// - Check types: use GetAppError() or CodeOf() for type-safe handling
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Generation pipeline errors
	ErrCodeAPIKeyMissing    ErrorCode = "API_KEY_MISSING"
	ErrCodeAPIRequestFailed ErrorCode = "API_REQUEST_FAILED"
	ErrCodeInvalidResponse  ErrorCode = "INVALID_RESPONSE"
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeDocumentEmpty    ErrorCode = "DOCUMENT_EMPTY"
	ErrCodeParsingError     ErrorCode = "PARSING_ERROR"

	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Resource errors
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// Storage errors
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"

	// Service errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"

	// Command errors
	ErrCodeCommandNotFound ErrorCode = "COMMAND_NOT_FOUND"
	ErrCodeInvalidCommand  ErrorCode = "INVALID_COMMAND"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryGeneration ErrorCategory = "generation"
	CategoryValidation ErrorCategory = "validation"
	CategoryService    ErrorCategory = "service"
	CategoryStorage    ErrorCategory = "storage"
	CategoryNetwork    ErrorCategory = "network"
	CategoryCommand    ErrorCategory = "command"
	CategorySystem     ErrorCategory = "system"
)

// AppError represents a standardized application error
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Severity  ErrorSeverity          `json:"severity"`
	Category  ErrorCategory          `json:"category"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether a caller may reasonably try again
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Timestamp: time.Now(),
		Retryable: isRetryable(code),
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := NewAppError(code, message)
	appErr.Cause = err
	return appErr
}

func categorizeError(code ErrorCode) (ErrorCategory, ErrorSeverity) {
	switch code {
	case ErrCodeAPIKeyMissing:
		return CategoryGeneration, SeverityWarning
	case ErrCodeAPIRequestFailed:
		return CategoryNetwork, SeverityError
	case ErrCodeInvalidResponse, ErrCodeParsingError:
		return CategoryGeneration, SeverityError
	case ErrCodeTemplateNotFound, ErrCodeNotFound:
		return CategoryService, SeverityInfo
	case ErrCodeDocumentEmpty:
		return CategoryValidation, SeverityWarning

	case ErrCodeValidation, ErrCodeInvalidInput:
		return CategoryValidation, SeverityWarning
	case ErrCodePermissionDenied:
		return CategoryService, SeverityError

	case ErrCodeStorageFailure:
		return CategoryStorage, SeverityError

	case ErrCodeInternalError:
		return CategoryService, SeverityCritical
	case ErrCodeTimeout:
		return CategoryNetwork, SeverityError

	case ErrCodeCommandNotFound:
		return CategoryCommand, SeverityInfo
	case ErrCodeInvalidCommand:
		return CategoryCommand, SeverityError

	default:
		return CategorySystem, SeverityError
	}
}

// Nothing is retried automatically; this only tells the caller whether
// re-invoking the same request could succeed.
func isRetryable(code ErrorCode) bool {
	switch code {
	case ErrCodeAPIRequestFailed, ErrCodeTimeout, ErrCodeStorageFailure:
		return true
	default:
		return false
	}
}

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error, or converts it to one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternalError, err.Error())
}

// CodeOf returns the error code of err, or "" for nil
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return GetAppError(err).Code
}

// Common error constructors for frequently used errors

func APIKeyMissingError() *AppError {
	return NewAppError(ErrCodeAPIKeyMissing, "API key is not configured")
}

func APIRequestError(message string, err error) *AppError {
	return Wrap(err, ErrCodeAPIRequestFailed, message)
}

func InvalidResponseError(message string) *AppError {
	return NewAppError(ErrCodeInvalidResponse, message)
}

func TemplateNotFoundError(id string) *AppError {
	return NewAppError(ErrCodeTemplateNotFound, fmt.Sprintf("template not found: %s", id)).WithContext("template_id", id)
}

func DocumentEmptyError(name string) *AppError {
	return NewAppError(ErrCodeDocumentEmpty, fmt.Sprintf("document %s has no content to analyze", name))
}

func ParsingError(message string) *AppError {
	return NewAppError(ErrCodeParsingError, message)
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func PermissionDeniedError(message string) *AppError {
	return NewAppError(ErrCodePermissionDenied, message)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternalError, message)
}

func StorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageFailure, fmt.Sprintf("Storage operation failed: %s", operation))
}

func CommandNotFoundError(command string) *AppError {
	return NewAppError(ErrCodeCommandNotFound, fmt.Sprintf("Command '%s' not found", command))
}

func InvalidCommandError(command string, reason string) *AppError {
	return NewAppError(ErrCodeInvalidCommand, fmt.Sprintf("Invalid command '%s': %s", command, reason))
}
