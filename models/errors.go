package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidURL         = "INVALID_URL"
	ErrCodeNetwork            = "NETWORK_ERROR"
	ErrCodeTLS                = "TLS_ERROR"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeBlocked            = "BLOCKED_OR_SERVER_ERROR"
	ErrCodeUnsupportedContent = "UNSUPPORTED_CONTENT"
	ErrCodeRender             = "RENDER_ERROR"

	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"

	// LLM fallback error codes. Classifier failures never surface to API
	// clients (they degrade to "not found") but are logged with these codes.
	ErrCodeLLMFailure     = "LLM_FAILURE"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
	ErrCodeLLMRateLimited = "LLM_RATE_LIMITED"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DetectError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type DetectError struct {
	Code    string
	Message string
	// StatusCode is the upstream HTTP status for ErrCodeBlocked, 0 otherwise.
	StatusCode int
	Err        error // wrapped original error
}

func (e *DetectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DetectError) Unwrap() error {
	return e.Err
}

// NewDetectError creates a new DetectError.
func NewDetectError(code, message string, err error) *DetectError {
	return &DetectError{Code: code, Message: message, Err: err}
}

// NewBlockedError creates an ErrCodeBlocked error carrying the upstream status.
func NewBlockedError(statusCode int, err error) *DetectError {
	return &DetectError{
		Code:       ErrCodeBlocked,
		Message:    fmt.Sprintf("upstream returned HTTP %d", statusCode),
		StatusCode: statusCode,
		Err:        err,
	}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *DetectError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
