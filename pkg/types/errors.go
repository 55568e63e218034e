package types

import (
	"errors"
	"fmt"
	"regexp"
)

// Validation errors
var (
	ErrEmptyName    = errors.New("name cannot be empty")
	ErrEmptyScopeID = errors.New("scope id cannot be empty")
	ErrEmptyText    = errors.New("text cannot be empty")
	ErrEmptyID      = errors.New("id cannot be empty")
	ErrInvalidLimit = errors.New("limit must be positive")
)

var (
	entityLabelPattern      = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)
	relationshipTypePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// ValidationError is returned for malformed caller input. It is always
// surfaced to the caller and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is implements errors.Is support for ValidationError.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a validation error for the named field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ValidateEntityLabel rejects labels that do not match ^[A-Z][A-Za-z0-9_]*$.
// Labels are interpolated into query text, so this is the injection-safety
// boundary for node writes.
func ValidateEntityLabel(label string) error {
	if !entityLabelPattern.MatchString(label) {
		return NewValidationError("label", fmt.Sprintf("%q must match %s", label, entityLabelPattern.String()))
	}
	return nil
}

// ValidateRelationshipType rejects types that do not match ^[A-Z][A-Z0-9_]*$.
func ValidateRelationshipType(relType string) error {
	if !relationshipTypePattern.MatchString(relType) {
		return NewValidationError("relationship type", fmt.Sprintf("%q must match %s", relType, relationshipTypePattern.String()))
	}
	return nil
}

// IsValidRelationshipType reports whether relType matches the uppercase
// with underscores convention without allocating an error.
func IsValidRelationshipType(relType string) bool {
	return relationshipTypePattern.MatchString(relType)
}
