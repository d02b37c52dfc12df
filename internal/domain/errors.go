package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is the root of every lookup failure.
	ErrNotFound = errors.New("not found")
	// ErrPollNotFound is returned when a poll id cannot be resolved.
	ErrPollNotFound = fmt.Errorf("poll %w", ErrNotFound)
	// ErrQuestionNotFound is returned when a question id cannot be resolved.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrAnswerNotFound is returned when an answer id cannot be resolved.
	ErrAnswerNotFound = fmt.Errorf("answer %w", ErrNotFound)
	// ErrUserNotFound is returned when a user answers record does not exist.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrExpired marks a submission after the poll finish date.
	ErrExpired = errors.New("poll expired")
	// ErrPermissionDenied is returned when a non-staff actor attempts a write.
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError carries field- or entity-keyed messages.
type ValidationError struct {
	Fields map[string]string
	cause  error
}

// Invalid builds a single-key validation error.
func Invalid(key, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{key: message}}
}

// Wrap attaches a cause so errors.Is sees through the validation error.
func (e *ValidationError) Wrap(cause error) *ValidationError {
	e.cause = cause
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Expired builds the ValidationError subtype reported for late submissions.
func Expired(finish Date) *ValidationError {
	return Invalid("date", fmt.Sprintf("Poll finish_date %s is expired", finish)).Wrap(ErrExpired)
}
