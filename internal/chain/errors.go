package chain

import (
	"errors"
	"fmt"

	"github.com/odakahirokazu/ANLNext/internal/status"
)

// ErrorCode categorizes chain errors.
type ErrorCode string

const (
	// ErrCodeDuplicateModuleID indicates two chained modules sharing an id.
	ErrCodeDuplicateModuleID ErrorCode = "DUPLICATE_MODULE_ID"

	// ErrCodeLifecyclePhaseFailure indicates a phase that returned a status
	// other than OK, or an engine error.
	ErrCodeLifecyclePhaseFailure ErrorCode = "LIFECYCLE_PHASE_FAILURE"

	// ErrCodeNoCurrentModule indicates a parameter helper called before any
	// module was chained or after ExposeModule missed.
	ErrCodeNoCurrentModule ErrorCode = "NO_CURRENT_MODULE"
)

// Error is returned by builder and driver operations.
type Error struct {
	Code ErrorCode

	// ModuleID identifies the affected module, if any.
	ModuleID string

	// Phase and Status are set for lifecycle failures.
	Phase  Phase
	Status status.Status

	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.ModuleID != "" {
		return fmt.Sprintf("%s: %s (module=%s)", e.Code, msg, e.ModuleID)
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

// Sentinels for errors.Is.
var (
	ErrDuplicateModuleID     = &Error{Code: ErrCodeDuplicateModuleID}
	ErrLifecyclePhaseFailure = &Error{Code: ErrCodeLifecyclePhaseFailure}
	ErrNoCurrentModule       = &Error{Code: ErrCodeNoCurrentModule}
)

// IsDuplicateModuleID returns true if err is a DuplicateModuleId error.
func IsDuplicateModuleID(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == ErrCodeDuplicateModuleID
}

// IsLifecyclePhaseFailure returns true if err is a LifecyclePhaseFailure.
func IsLifecyclePhaseFailure(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == ErrCodeLifecyclePhaseFailure
}

// FailedPhase extracts the phase and status of a lifecycle failure.
func FailedPhase(err error) (Phase, status.Status, bool) {
	var ce *Error
	if errors.As(err, &ce) && ce.Code == ErrCodeLifecyclePhaseFailure {
		return ce.Phase, ce.Status, true
	}
	return 0, status.OK, false
}

func newPhaseError(p Phase, st status.Status, err error) *Error {
	msg := fmt.Sprintf("%s returned %s", p, st)
	if err != nil {
		msg = fmt.Sprintf("%s failed", p)
	}
	return &Error{Code: ErrCodeLifecyclePhaseFailure, Phase: p, Status: st, Message: msg, Err: err}
}
