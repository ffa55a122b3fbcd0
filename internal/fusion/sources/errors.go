package sources

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory defines the normalized failure taxonomy for source adapters.
type ErrorCategory string

const (
	// ErrorClient indicates a malformed or unauthorized request. Never
	// retried, always surfaced.
	ErrorClient ErrorCategory = "client"

	// ErrorTransient indicates a network failure or 5xx-class response.
	ErrorTransient ErrorCategory = "transient"

	// ErrorTimeout indicates the source took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorNotFound indicates the source has no record for the identifier.
	// Not retried; treated as a legitimate empty result, not a failure.
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates the source is throttling us.
	ErrorRateLimited ErrorCategory = "rate_limited"
)

// SourceError wraps adapter failures with normalized categorization.
type SourceError struct {
	Category   ErrorCategory
	Source     string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *SourceError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("source %s [%s]: %s: %v", e.Source, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("source %s [%s]: %s", e.Source, e.Category, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Underlying
}

// NewSourceError creates a normalized source error. Retryability follows
// directly from the category.
func NewSourceError(category ErrorCategory, source, message string, underlying error) *SourceError {
	retryable := category == ErrorTransient ||
		category == ErrorTimeout ||
		category == ErrorRateLimited

	return &SourceError{
		Category:   category,
		Source:     source,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying. Unclassified errors
// (plain network failures) default to retryable.
func IsRetryable(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return true
}

// IsNotFound checks if an error is the legitimate-empty-result case.
func IsNotFound(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Category == ErrorNotFound
	}
	return false
}

// CategoryOf extracts the category, defaulting to transient for plain errors.
func CategoryOf(err error) ErrorCategory {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Category
	}
	return ErrorTransient
}

// categorizeStatus maps an HTTP response status to the taxonomy.
func categorizeStatus(status int) ErrorCategory {
	switch {
	case status == http.StatusNotFound:
		return ErrorNotFound
	case status == http.StatusTooManyRequests:
		return ErrorRateLimited
	case status == http.StatusRequestTimeout:
		return ErrorTimeout
	case status >= 400 && status < 500:
		return ErrorClient
	default:
		return ErrorTransient
	}
}
