// Package apierror defines the three client-facing error kinds the API
// returns and the echo error handler that renders them.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an API error and selects its HTTP status.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthentication
	KindNotFound
)

// NonFieldErrors is the key used for validation messages not tied to a field.
const NonFieldErrors = "non_field_errors"

// Error is a client-facing failure. Validation errors carry per-field
// message lists; the other kinds carry a single detail string.
type Error struct {
	Kind   Kind
	Detail string
	Fields map[string][]string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindValidation:
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
		}
		return "validation failed: " + strings.Join(parts, ", ")
	default:
		return e.Detail
	}
}

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Body returns the JSON response body.
func (e *Error) Body() interface{} {
	if e.Kind == KindValidation {
		return e.Fields
	}
	return map[string]string{"detail": e.Detail}
}

// Validation returns a validation error for a single field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Fields: map[string][]string{field: {message}}}
}

// NonField returns a validation error not tied to a specific field.
func NonField(message string) *Error {
	return Validation(NonFieldErrors, message)
}

// Authentication returns a 401 error.
func Authentication(detail string) *Error {
	return &Error{Kind: KindAuthentication, Detail: detail}
}

// NotFound returns the 404 error used for both absent and not-owned rows.
func NotFound() *Error {
	return &Error{Kind: KindNotFound, Detail: "Not found."}
}

// FieldErrors accumulates validation messages across fields.
type FieldErrors map[string][]string

// Add appends a message for field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Err returns nil when no messages were added.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &Error{Kind: KindValidation, Fields: map[string][]string(f)}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an *Error of kind k.
func IsKind(err error, k Kind) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Kind == k
}
