// Package errs holds the failure kinds returned by the blogging core and
// their mapping onto HTTP responses.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Sentinels every typed error unwraps to
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("operation not allowed")
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError carries field-level detail for input that breaks a structural rule
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a missing resource. Missing lists unknown tag names
// verbatim; Expired marks a post that exists but is past its deadline.
type NotFoundError struct {
	Resource string
	Missing  []string
	Expired  bool
}

func (e *NotFoundError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return "The following tags do not exist: " + strings.Join(e.Missing, ", ")
	case e.Expired:
		return fmt.Sprintf("This %s has expired", e.resource())
	default:
		return fmt.Sprintf("%s not found", capitalize(e.resource()))
	}
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (e *NotFoundError) resource() string {
	if e.Resource == "" {
		return "resource"
	}
	return e.Resource
}

// AuthorizationError is returned when the caller does not own the resource it tries to mutate
type AuthorizationError struct {
	Action   string
	Resource string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("You are not authorized to %s this %s", e.Action, e.Resource)
}

func (e *AuthorizationError) Unwrap() error { return ErrForbidden }

// IsNotFound reports whether err is any kind of not-found failure
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden reports whether err is an authorization failure
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsValidation reports whether err is a validation failure
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// Status maps an error onto the HTTP status the API exposes for it
func Status(err error) int {
	var notFound *NotFoundError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &notFound) && notFound.Expired:
		return http.StatusGone
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
