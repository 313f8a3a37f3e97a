package crm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrIntegrity wraps write failures at the storage level (constraint
	// violations, aborted transactions). Nothing from the failed write is
	// persisted.
	ErrIntegrity = errors.New("integrity violation")
	// ErrUnavailable means the store could not be reached at all.
	ErrUnavailable = errors.New("store unavailable")
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"message"`
}

func (e FieldError) String() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// ValidationError reports bad, missing or conflicting input. It is always
// returned before anything is written.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Reason: reason}}}
}

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	Kind  string
	Field string
	IDs   []string
}

func (e *NotFoundError) Error() string {
	if e.Kind == "products" {
		return "one or more products not found: " + strings.Join(e.IDs, ", ")
	}
	if len(e.IDs) > 0 {
		return fmt.Sprintf("%s not found: %s", e.Kind, e.IDs[0])
	}
	return e.Kind + " not found"
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// FieldErrors turns validation and not-found errors into the list reported
// back to callers. ok is false for any other error.
func FieldErrors(err error) ([]FieldError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, true
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		reason := nf.Kind + " not found"
		if nf.Kind == "products" {
			reason = nf.Error()
		}
		return []FieldError{{Field: nf.Field, Reason: reason}}, true
	}
	return nil, false
}
