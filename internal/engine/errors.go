package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected by the engine itself, as
// opposed to a status returned by a module.
//
// Runtime errors include:
//   - Phase order: a phase called before the phase it depends on
//   - Replication: a module that cannot be copied for a parallel replica
//   - Cancellation: the context ended the event loop
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// ModuleID identifies the affected module, if any.
	ModuleID string

	// Replica identifies the affected parallel replica.
	Replica int

	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodePhaseOrder indicates a phase invoked out of order.
	ErrCodePhaseOrder RuntimeErrorCode = "PHASE_ORDER"

	// ErrCodeReplication indicates a failure building a parallel replica.
	ErrCodeReplication RuntimeErrorCode = "REPLICATION_FAILED"

	// ErrCodeCanceled indicates the event loop stopped on context
	// cancellation.
	ErrCodeCanceled RuntimeErrorCode = "CANCELED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.ModuleID != "" {
		return fmt.Sprintf("%s: %s (module=%s, replica=%d)", e.Code, msg, e.ModuleID, e.Replica)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsPhaseOrderError returns true if err is a phase order error.
// Uses errors.As to handle wrapped errors.
func IsPhaseOrderError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodePhaseOrder
}

// IsReplicationError returns true if err is a replication error.
func IsReplicationError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeReplication
}

// IsCanceled returns true if err is a cancellation error.
func IsCanceled(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeCanceled
}

// NewPhaseOrderError creates a RuntimeError for a phase called too early.
func NewPhaseOrderError(phase string, reached engineState) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodePhaseOrder,
		Message: fmt.Sprintf("%s called in state %s", phase, reached),
	}
}

// NewReplicationError creates a RuntimeError for a failed module copy.
func NewReplicationError(moduleID string, replica int, err error) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeReplication,
		Message:  "cannot replicate module",
		ModuleID: moduleID,
		Replica:  replica,
		Err:      err,
	}
}
