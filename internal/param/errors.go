package param

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a parameter error category.
type ErrorCode string

const (
	// ErrCodeUnknownParameter indicates a name that was never declared.
	ErrCodeUnknownParameter ErrorCode = "UNKNOWN_PARAMETER"

	// ErrCodeDuplicateParameter indicates a second declaration of a name.
	ErrCodeDuplicateParameter ErrorCode = "DUPLICATE_PARAMETER"

	// ErrCodeTypeMismatch indicates a value whose kind differs from the
	// declared kind, or a container operation on a non-container parameter.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeSchemaViolation indicates record fields that do not match the
	// container schema.
	ErrCodeSchemaViolation ErrorCode = "SCHEMA_VIOLATION"

	// ErrCodeNoSuchElement indicates a reflection cursor that is out of range
	// or not positioned.
	ErrCodeNoSuchElement ErrorCode = "NO_SUCH_ELEMENT"
)

// Sentinels for errors.Is. Only the code is compared.
var (
	ErrUnknownParameter   = &Error{Code: ErrCodeUnknownParameter}
	ErrDuplicateParameter = &Error{Code: ErrCodeDuplicateParameter}
	ErrTypeMismatch       = &Error{Code: ErrCodeTypeMismatch}
	ErrSchemaViolation    = &Error{Code: ErrCodeSchemaViolation}
	ErrNoSuchElement      = &Error{Code: ErrCodeNoSuchElement}
)

// Error is returned by registry and reflection operations.
type Error struct {
	Code      ErrorCode
	Parameter string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Parameter != "" {
		return fmt.Sprintf("%s: parameter %q: %s", e.Code, e.Parameter, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, name, msg string) *Error {
	return &Error{Code: code, Parameter: name, Message: msg}
}

func wrapError(code ErrorCode, name string, err error) *Error {
	return &Error{Code: code, Parameter: name, Err: err}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsUnknownParameter returns true if err is an UnknownParameter error.
func IsUnknownParameter(err error) bool { return hasCode(err, ErrCodeUnknownParameter) }

// IsDuplicateParameter returns true if err is a DuplicateParameter error.
func IsDuplicateParameter(err error) bool { return hasCode(err, ErrCodeDuplicateParameter) }

// IsTypeMismatch returns true if err is a TypeMismatch error.
func IsTypeMismatch(err error) bool { return hasCode(err, ErrCodeTypeMismatch) }

// IsSchemaViolation returns true if err is a SchemaViolation error.
func IsSchemaViolation(err error) bool { return hasCode(err, ErrCodeSchemaViolation) }
