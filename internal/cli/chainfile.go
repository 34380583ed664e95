package cli

import (
	"errors"
	"log/slog"

	"github.com/odakahirokazu/ANLNext/internal/chain"
	"github.com/odakahirokazu/ANLNext/internal/chaindef"
	"github.com/odakahirokazu/ANLNext/internal/modules"
	"github.com/odakahirokazu/ANLNext/internal/param"
)

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// loadChain reads a chain file and replays it onto b. The parameters stay
// queued until b.LoadAllParameters.
func loadChain(path string, b *chain.Builder) (*chaindef.Definition, error) {
	def, err := chaindef.Load(path)
	if err != nil {
		return nil, err
	}
	if err := chaindef.Apply(def, b, modules.Catalog()); err != nil {
		return nil, err
	}
	return def, nil
}

// errorCode maps an error to the CLIError code reported for it.
func errorCode(err error) string {
	var loadErr *chaindef.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	var paramErr *param.Error
	if errors.As(err, &paramErr) {
		return ErrCodeParameters
	}
	if chain.IsLifecyclePhaseFailure(err) {
		return ErrCodeRunFailed
	}
	return ErrCodeGeneric
}

// ValidationError is one problem found in a chain file.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func toValidationError(err error) ValidationError {
	ve := ValidationError{Code: errorCode(err), Message: err.Error()}
	var loadErr *chaindef.LoadError
	if errors.As(err, &loadErr) {
		ve.Message = loadErr.Message
		ve.File = loadErr.Pos.Filename
		ve.Line = loadErr.Pos.Line
		ve.Column = loadErr.Pos.Column
	}
	return ve
}

// isReadFailure reports whether err means the chain file could not be read
// at all, as opposed to a chain with errors in it.
func isReadFailure(err error) bool {
	var loadErr *chaindef.LoadError
	return errors.As(err, &loadErr) && loadErr.Code == chaindef.ErrCodeReadFailed
}
