package errors

import "fmt"

// ErrorType classifies the failures the backup pipeline can hit.
type ErrorType string

const (
	ErrorTypeExtractionTimeout  ErrorType = "extraction_timeout"
	ErrorTypeMissingElement     ErrorType = "missing_element"
	ErrorTypeCommentFetch       ErrorType = "comment_fetch"
	ErrorTypeNavigationRequired ErrorType = "navigation_required"
	ErrorTypeStateCorrupt       ErrorType = "state_corrupt"
	ErrorTypePackaging          ErrorType = "packaging"
	ErrorTypeNavigation         ErrorType = "navigation"
	ErrorTypeUnknown            ErrorType = "unknown"
)

// Error carries the failure class alongside the message, so callers
// can contain it at the right scope (field, post, page or run).
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a typed error without a cause.
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap attaches a failure class to an underlying error.
func Wrap(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

// TypeOf extracts the failure class of err, ErrorTypeUnknown if it is
// not a typed error.
func TypeOf(err error) ErrorType {
	if e, ok := err.(*Error); ok {
		return e.Type
	}
	return ErrorTypeUnknown
}

// HaltsRun reports whether the failure must clear or stop the whole
// run. Everything else is contained: a field failure degrades one
// field, a post failure skips one post, a page failure skips one page.
func HaltsRun(t ErrorType) bool {
	return t == ErrorTypeStateCorrupt
}

// IsRetryable reports whether a failure class is worth retrying.
// Browser navigation can fail transiently; everything else reflects
// the page's structure and will not change on a retry.
func IsRetryable(t ErrorType) bool {
	return t == ErrorTypeNavigation
}
