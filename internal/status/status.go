// Package status defines the result codes returned by module lifecycle
// callbacks and engine phases.
//
// The chain driver only distinguishes OK, Skip and Quit. The remaining codes
// refine those three for the engine: the *Error variants record that the
// module also failed, QuitAll stops every parallel replica, and the two
// critical codes escalate past the event loop.
package status

import "fmt"

// Status is the outcome of one lifecycle call.
type Status int

const (
	OK Status = iota
	Error
	Skip
	SkipError
	Quit
	QuitError
	QuitAll
	QuitAllError
	CriticalErrorToFinalize
	CriticalErrorToTerminate
)

var names = [...]string{
	OK:                       "AS_OK",
	Error:                    "AS_ERROR",
	Skip:                     "AS_SKIP",
	SkipError:                "AS_SKIP_ERROR",
	Quit:                     "AS_QUIT",
	QuitError:                "AS_QUIT_ERROR",
	QuitAll:                  "AS_QUIT_ALL",
	QuitAllError:             "AS_QUIT_ALL_ERROR",
	CriticalErrorToFinalize:  "AS_CRITICAL_ERROR_TO_FINALIZE",
	CriticalErrorToTerminate: "AS_CRITICAL_ERROR_TO_TERMINATE",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(names) {
		return names[s]
	}
	return fmt.Sprintf("AS_UNKNOWN(%d)", int(s))
}

// Parse converts an "AS_*" name back to a Status.
func Parse(name string) (Status, error) {
	for i, n := range names {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// IsNormalError reports whether s carries a non-critical error flag.
func IsNormalError(s Status) bool {
	switch s {
	case Error, SkipError, QuitError, QuitAllError:
		return true
	}
	return false
}

// IsCriticalError reports whether s escalates past the event loop.
func IsCriticalError(s Status) bool {
	return s == CriticalErrorToFinalize || s == CriticalErrorToTerminate
}

// EliminateNormalError strips the error flag: SkipError becomes Skip,
// QuitError becomes Quit and so on. Error becomes OK.
func EliminateNormalError(s Status) Status {
	switch s {
	case Error:
		return OK
	case SkipError:
		return Skip
	case QuitError:
		return Quit
	case QuitAllError:
		return QuitAll
	}
	return s
}

// Base reduces s to the driver's three-valued protocol. Every quit-like or
// critical code maps to Quit.
func Base(s Status) Status {
	switch EliminateNormalError(s) {
	case OK:
		return OK
	case Skip:
		return Skip
	}
	return Quit
}
