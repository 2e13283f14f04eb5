package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the different kinds of failure a post lookup can produce
type ErrorType string

const (
	ErrorTypeNetwork            ErrorType = "network"
	ErrorTypeHTTPStatus         ErrorType = "http_status"
	ErrorTypeParsing            ErrorType = "parsing"
	ErrorTypeInvalidURL         ErrorType = "invalid_url"
	ErrorTypeTokenNotFound      ErrorType = "token_not_found"
	ErrorTypeUnsupportedContent ErrorType = "unsupported_content"
	ErrorTypeFetchFailed        ErrorType = "fetch_failed"
	ErrorTypeLookup             ErrorType = "lookup"
)

// Sentinels for errors.Is. Matching is by Type only.
var (
	ErrNetwork            = &Error{Type: ErrorTypeNetwork}
	ErrHTTPStatus         = &Error{Type: ErrorTypeHTTPStatus}
	ErrParsing            = &Error{Type: ErrorTypeParsing}
	ErrInvalidURL         = &Error{Type: ErrorTypeInvalidURL}
	ErrTokenNotFound      = &Error{Type: ErrorTypeTokenNotFound}
	ErrUnsupportedContent = &Error{Type: ErrorTypeUnsupportedContent}
	ErrFetchFailed        = &Error{Type: ErrorTypeFetchFailed}
	ErrLookup             = &Error{Type: ErrorTypeLookup}
)

// Error represents a typed failure. Code and Body are set when the failure
// came from an HTTP response.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Body    string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s error", e.Type)
	}
	return e.Message
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// New creates an error of the given type
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates an error of the given type around a cause
func Wrap(errorType ErrorType, message string, err error) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// NewHTTPStatus creates an error for a non-2xx response
func NewHTTPStatus(code int, body string) *Error {
	return &Error{
		Type:    ErrorTypeHTTPStatus,
		Message: fmt.Sprintf("response code %d (%s)", code, http.StatusText(code)),
		Code:    code,
		Body:    body,
	}
}

// NewTokenNotFound creates a token acquisition error
func NewTokenNotFound(message string) *Error {
	return New(ErrorTypeTokenNotFound, message)
}

// NewUnsupportedContent creates an error for a well-formed response without
// a media payload
func NewUnsupportedContent() *Error {
	return New(ErrorTypeUnsupportedContent, "unsupported type or private content")
}

// NewFetchFailed wraps a terminal fetch failure. The message carries the
// upstream response body when one is known, else the cause's message.
func NewFetchFailed(err error) *Error {
	detail := Body(err)
	if detail == "" && err != nil {
		detail = err.Error()
	}
	return &Error{
		Type:    ErrorTypeFetchFailed,
		Message: "instagram request failed with retries: " + detail,
		Code:    StatusCode(err),
		Err:     err,
	}
}

// NewLookup wraps any failure of a post lookup with a uniform prefix
func NewLookup(err error) *Error {
	msg := "instagram error"
	if err != nil {
		msg += ": " + err.Error()
	}
	return &Error{
		Type:    ErrorTypeLookup,
		Message: msg,
		Code:    StatusCode(err),
		Err:     err,
	}
}

// StatusCode returns the first non-zero HTTP status found in err's chain
func StatusCode(err error) int {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return 0
		}
		if e.Code != 0 {
			return e.Code
		}
		err = e.Err
	}
	return 0
}

// Body returns the first non-empty response body found in err's chain
func Body(err error) string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.Body != "" {
			return e.Body
		}
		err = e.Err
	}
	return ""
}

// GetType returns the type of the outermost *Error in err's chain
func GetType(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsRetryableStatusCode reports whether a fetch that failed with this status
// should be attempted again
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusForbidden:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err carries a retryable HTTP status anywhere in
// its chain
func IsRetryable(err error) bool {
	return IsRetryableStatusCode(StatusCode(err))
}
