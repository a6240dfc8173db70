// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors (user fault)
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrNotEnrolled     = errors.New("not enrolled")

	// Content integrity errors (server fault: the content pipeline produced
	// something this engine cannot work with)
	ErrContentIntegrity = errors.New("content integrity error")
	ErrInvalidStructure = errors.New("invalid content structure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "content"
	Op      string // Operation that failed, e.g., "RecordCompletion"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progress domain errors
var (
	ErrPlayerNotEnrolled = NewDomainError("progress", "CheckEnrollment", ErrNotEnrolled, "player is not enrolled in subject")
	ErrInvalidHearts     = NewDomainError("progress", "Validate", ErrValueOutOfRange, "hearts must be an integer between 0 and 5")
	ErrEmptyLessonID     = NewDomainError("progress", "Validate", ErrEmptyValue, "lesson id is required")
	ErrEmptyPlayerID     = NewDomainError("progress", "Validate", ErrEmptyValue, "player id is required")
	ErrEmptySubjectID    = NewDomainError("progress", "Validate", ErrEmptyValue, "subject id is required")
	ErrSnapshotNotFound  = NewDomainError("progress", "FindSnapshot", ErrNotFound, "progress snapshot not found")
)

// Content domain errors
var (
	ErrLessonNotFound     = NewDomainError("content", "LocateLesson", ErrContentIntegrity, "lesson not found in any subject structure")
	ErrStructureNotFound  = NewDomainError("content", "LoadStructure", ErrContentIntegrity, "subject structure not found")
	ErrMalformedStructure = NewDomainError("content", "Validate", ErrInvalidStructure, "subject structure is malformed")
	ErrUnassignedSlot     = NewDomainError("content", "Validate", ErrInvalidStructure, "lesson has no assigned slot index")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether the error is a user-facing validation error.
// Validation errors are caller faults and map to 4xx at the (external) edge.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrNotEnrolled)
}

// IsContentIntegrity reports whether the error indicates broken content
// produced upstream. These are server faults, never user faults.
func IsContentIntegrity(err error) bool {
	return errors.Is(err, ErrContentIntegrity) ||
		errors.Is(err, ErrInvalidStructure)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
