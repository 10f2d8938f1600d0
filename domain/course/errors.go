package course

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes shared by the remote authority and its clients.
const (
	CodeValidationFailed = "validation_failed"
	CodeSlugTaken        = "slug_taken"
	CodeNotFound         = "not_found"
)

// ErrNotFound is returned when a course does not exist.
var ErrNotFound = errors.New("course not found")

// ValidationError carries the issues that blocked a save or publish.
// It is never retried automatically.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Issues, "; ")
}

// ConflictError is a structured conflict reported by the remote authority.
type ConflictError struct {
	Code       string
	Field      string
	Value      string
	Suggestion string
	Message    string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s %q", e.Code, e.Field, e.Value)
}

// Issues returns the validation issues wrapped in err, if any.
func Issues(err error) ([]string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Issues, true
	}
	return nil, false
}

// IsSlugTaken reports whether err is a slug conflict.
func IsSlugTaken(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Code == CodeSlugTaken
}
