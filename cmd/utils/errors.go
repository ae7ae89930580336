package utils

import "fmt"

// NotFoundError marks a referenced entity that does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// ValidationError marks malformed input or a referential mismatch, such as a
// counselor ID that points at a non-counselor user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Invalid(message string) error {
	return &ValidationError{Message: message}
}

// ConflictError marks a business-rule violation: unavailable schedule, full
// capacity, overlapping time slot, duplicate schedule for a date.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func Conflict(message string) error {
	return &ConflictError{Message: message}
}
