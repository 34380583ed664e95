package chaindef

import "fmt"

// Error codes for chain definition problems. They share the E-code space
// of the CLI.
const (
	ErrCodeUnsupportedFormat = "E201" // Unknown file extension
	ErrCodeReadFailed        = "E202" // File could not be read
	ErrCodeParseFailed       = "E203" // Syntax error in the file
	ErrCodeInvalid           = "E204" // Well-formed file, wrong shape
	ErrCodeUnknownType       = "E205" // Module type not in the catalog
	ErrCodeApplyFailed       = "E206" // Builder rejected the definition
)

// Pos is a position in a chain file.
type Pos struct {
	Filename string
	Line     int
	Column   int
}

// IsValid reports whether the position carries a line.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

// LoadError represents an error found while loading or applying a chain
// definition.
type LoadError struct {
	Code    string
	Message string
	Pos     Pos // Position if the parser reported one
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) *LoadError {
	return &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf(format, args...)}
}
