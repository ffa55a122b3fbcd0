package domain

import (
	"fmt"

	dErrors "trustcheck/pkg/domain-errors"
)

// BusinessID is the 9-digit registration number used as the universal lookup
// key for all government sources.
// Invariant: exactly nine ASCII digits; the zero value is invalid.
//
// Usage: construct via ParseBusinessID at trust boundaries to enforce the
// format; direct casting bypasses validation.
type BusinessID string

// ParseBusinessID constructs a BusinessID from external input.
func ParseBusinessID(raw string) (BusinessID, error) {
	if raw == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "business id is required")
	}
	if len(raw) != 9 {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("business id must be 9 digits, got %d characters", len(raw)))
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "business id must contain only digits")
		}
	}
	return BusinessID(raw), nil
}

func (id BusinessID) String() string {
	return string(id)
}

// FirstDigit returns the leading digit that partitions the identifier space.
// Only valid on a parsed BusinessID.
func (id BusinessID) FirstDigit() byte {
	return id[0]
}
