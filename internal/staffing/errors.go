package staffing

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors for callers that map them to a transport.
type Kind string

const (
	KindInvalidReference Kind = "INVALID_REFERENCE"
	KindNotFound         Kind = "NOT_FOUND"
	KindValidation       Kind = "VALIDATION_ERROR"
	KindCapacityExceeded Kind = "CAPACITY_EXCEEDED"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindForbidden        Kind = "FORBIDDEN"
	KindStoreFailure     Kind = "STORE_FAILURE"
)

// CapacityDetail carries the numbers behind a capacity rejection.
type CapacityDetail struct {
	Attempted   int `json:"attempted"`
	Existing    int `json:"existing"`
	MaxCapacity int `json:"max_capacity"`
}

// Error is the typed error returned by every engine operation.
type Error struct {
	Kind     Kind
	Message  string
	Err      error
	Capacity *CapacityDetail
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err. Errors that are not *Error are
// reported as store failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreFailure
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// InvalidReference reports a malformed entity id.
func InvalidReference(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidReference, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports an absent entity.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation reports a field-level rejection.
func Validation(err error) *Error {
	return &Error{Kind: KindValidation, Message: err.Error()}
}

// Unauthorized reports a missing or invalid identity.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Forbidden reports an identity without permission for the action.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// StoreFailure wraps a persistence error once with the failing operation.
func StoreFailure(op string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindStoreFailure, Message: op, Err: err}
}

// CapacityExceeded reports an allocation that would over-commit an engineer.
func CapacityExceeded(attempted, existing, maxCapacity int) *Error {
	return &Error{
		Kind: KindCapacityExceeded,
		Message: fmt.Sprintf("allocation (%d%%) + existing (%d%%) exceeds engineer's max capacity (%d%%)",
			attempted, existing, maxCapacity),
		Capacity: &CapacityDetail{
			Attempted:   attempted,
			Existing:    existing,
			MaxCapacity: maxCapacity,
		},
	}
}
