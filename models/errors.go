package models

import "fmt"

// Error codes used for internal classification and logging.
// Only ErrCodeInvalidInput is distinguishable by API callers.
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeLaunchFailure     = "LAUNCH_FAILURE"
	ErrCodeNavigationTimeout = "NAVIGATION_TIMEOUT"
	ErrCodeNavigation        = "NAVIGATION_FAILED"
	ErrCodeExtraction        = "EXTRACTION_FAULT"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// Public error messages. Underlying detail never leaves the server.
const (
	MsgInvalidURL  = "Invalid URL"
	MsgFetchFailed = "Failed to fetch preview"
)

// PreviewError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type PreviewError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *PreviewError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PreviewError) Unwrap() error {
	return e.Err
}

// NewPreviewError creates a new PreviewError.
func NewPreviewError(code, message string, err error) *PreviewError {
	return &PreviewError{Code: code, Message: message, Err: err}
}

// PublicMessage is the only text a caller ever sees for this error.
func (e *PreviewError) PublicMessage() string {
	if e.Code == ErrCodeInvalidInput {
		return MsgInvalidURL
	}
	return MsgFetchFailed
}
