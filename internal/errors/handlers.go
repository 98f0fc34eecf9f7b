package errors

import (
	"fmt"
	"net/http"

	"github.com/dpshade/pocket-meta/internal/logger"
)

// ErrorHandler provides interface-specific error handling
type ErrorHandler interface {
	HandleError(err error) error
	FormatError(err error) string
}

// UserMessage converts any error into the short message shown to a person.
// Generation codes get fixed phrasing; everything else uses the AppError message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	appErr := GetAppError(err)
	switch appErr.Code {
	case ErrCodeAPIKeyMissing:
		return "Please configure your API key before generating metadata"
	case ErrCodeAPIRequestFailed:
		return fmt.Sprintf("API request failed: %s", appErr.Message)
	case ErrCodeInvalidResponse:
		return "The API returned an unexpected response"
	case ErrCodeTemplateNotFound:
		return appErr.Message
	case ErrCodeDocumentEmpty:
		return "The document is empty, nothing to generate metadata from"
	case ErrCodeParsingError:
		return "The model did not return usable metadata"
	default:
		return appErr.Message
	}
}

// CLIErrorHandler handles errors for CLI interface
type CLIErrorHandler struct {
	Verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler(verbose bool) *CLIErrorHandler {
	return &CLIErrorHandler{
		Verbose: verbose,
	}
}

// HandleError logs the error and returns a display-ready replacement
func (h *CLIErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	if h.Verbose {
		logger.Error(appErr.Message, "code", appErr.Code, "severity", appErr.Severity, "cause", appErr.Cause)
	}

	return fmt.Errorf("%s", h.FormatError(appErr))
}

// FormatError formats an error for CLI display
func (h *CLIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)
	msg := UserMessage(appErr)
	if h.Verbose && appErr.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, appErr.Details)
	}

	switch appErr.Severity {
	case SeverityCritical:
		return fmt.Sprintf("CRITICAL: %s", msg)
	case SeverityWarning:
		return fmt.Sprintf("WARNING: %s", msg)
	case SeverityInfo:
		return fmt.Sprintf("INFO: %s", msg)
	default:
		return fmt.Sprintf("ERROR: %s", msg)
	}
}

// HTTPErrorBody is the JSON error envelope returned by the API
type HTTPErrorBody struct {
	Error HTTPErrorInfo `json:"error"`
}

// HTTPErrorInfo is the payload inside HTTPErrorBody
type HTTPErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// HTTPErrorHandler maps AppErrors onto HTTP responses
type HTTPErrorHandler struct {
	IncludeDetails bool
}

// NewHTTPErrorHandler creates a new HTTP error handler
func NewHTTPErrorHandler(includeDetails bool) *HTTPErrorHandler {
	return &HTTPErrorHandler{
		IncludeDetails: includeDetails,
	}
}

// Response returns the status code and body for err
func (h *HTTPErrorHandler) Response(err error) (int, HTTPErrorBody) {
	appErr := GetAppError(err)
	logger.Warn("request failed", "code", appErr.Code, "error", appErr.Error())

	body := HTTPErrorBody{Error: HTTPErrorInfo{
		Code:    appErr.Code,
		Message: UserMessage(appErr),
	}}
	if h.IncludeDetails {
		body.Error.Details = appErr.Details
	}
	return StatusCode(appErr), body
}

// StatusCode maps error codes to HTTP status codes
func StatusCode(err error) int {
	appErr := GetAppError(err)
	switch appErr.Code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeDocumentEmpty:
		return http.StatusBadRequest
	case ErrCodeAPIKeyMissing:
		return http.StatusPreconditionFailed
	case ErrCodeNotFound, ErrCodeTemplateNotFound:
		return http.StatusNotFound
	case ErrCodePermissionDenied:
		return http.StatusForbidden
	case ErrCodeAPIRequestFailed, ErrCodeInvalidResponse, ErrCodeParsingError:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
