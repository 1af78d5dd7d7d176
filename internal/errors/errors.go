package errors

import (
	stderrors "errors"
	"fmt"
)

// AmanError is the structured error type shared by every amanvoice package.
type AmanError struct {
	// Code is the unique error code (e.g., "ERR_503_SEARCH_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details carries extra context such as the record id.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error

	Retryable bool

	// Suggestion is an actionable hint for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *AmanError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *AmanError) Unwrap() error {
	return e.Cause
}

// Is matches by code so sentinels work with errors.Is.
func (e *AmanError) Is(target error) bool {
	if t, ok := target.(*AmanError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *AmanError) WithDetail(key, value string) *AmanError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *AmanError) WithSuggestion(suggestion string) *AmanError {
	e.Suggestion = suggestion
	return e
}

// New creates an AmanError. Category, severity and retryability derive from the code.
func New(code string, message string, cause error) *AmanError {
	return &AmanError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an AmanError from an existing error, reusing its message.
func Wrap(code string, err error) *AmanError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is. Compare by code, never by pointer.
var (
	ErrNotInitialized = New(ErrCodeNotInitialized, "not initialized", nil)
	ErrSearchFailed   = New(ErrCodeSearchFailed, "both search methods failed", nil)
	ErrRecordNotFound = New(ErrCodeRecordNotFound, "record not found", nil)
	ErrIndexLocked    = New(ErrCodeIndexLocked, "index is locked by another process", nil)
)

// NotInitialized reports use of a component before it was initialized or built.
func NotInitialized(component string) *AmanError {
	return New(ErrCodeNotInitialized, component+" not initialized", nil).
		WithDetail("component", component)
}

// StorageError wraps a fatal storage failure.
func StorageError(op string, cause error) *AmanError {
	return New(ErrCodeStorageFailed, fmt.Sprintf("%s failed", op), cause).
		WithDetail("op", op)
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *AmanError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *AmanError {
	return New(ErrCodeInvalidInput, message, cause)
}

// IsRetryable reports whether any AmanError in the chain is retryable.
func IsRetryable(err error) bool {
	var ae *AmanError
	if stderrors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// IsFatal reports whether any AmanError in the chain is fatal.
func IsFatal(err error) bool {
	var ae *AmanError
	if stderrors.As(err, &ae) {
		return ae.Severity == SeverityFatal
	}
	return false
}

// GetCode returns the code of the first AmanError in the chain, or "".
func GetCode(err error) string {
	var ae *AmanError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
