package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/odakahirokazu/ANLNext/internal/chain"
	"github.com/odakahirokazu/ANLNext/internal/engine"
	"github.com/odakahirokazu/ANLNext/internal/modules"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	File    string            `json:"file"`
	Modules []string          `json:"modules,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// RenderText prints a one-line verdict and one line per problem.
func (r *ValidationResult) RenderText(w io.Writer) error {
	if r.Valid {
		fmt.Fprintf(w, "✓ %s valid (%d modules)\n", r.File, len(r.Modules))
		return nil
	}
	fmt.Fprintf(w, "✗ %s invalid\n\n", r.File)
	for _, e := range r.Errors {
		if e.Line > 0 {
			fmt.Fprintf(w, "line %d:%d\n", e.Line, e.Column)
		}
		fmt.Fprintf(w, "  %s: %s\n", e.Code, e.Message)
	}
	return nil
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <chain-file>",
		Short: "Check a chain file without running it",
		Long: `Parse a chain file, build its modules and apply every parameter, without
running any lifecycle phase. Unknown module types, duplicate ids, unknown
parameters and values of the wrong kind are reported.

Exit codes:
  0 - The chain is valid
  1 - The chain has errors
  2 - Command error (file not readable, etc.)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result, err := validateChain(opts, path)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read chain file", err)
	}
	formatter.VerboseLog("Checked %d module(s) in %s", len(result.Modules), path)

	if !result.Valid {
		first := result.Errors[0]
		if err := formatter.Failure(result, first.Code, first.Message); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return formatter.Success(result)
}

// validateChain builds the chain in path and loads its parameters. Problems
// with the chain are reported in the result; the error is only for a file
// that could not be read.
func validateChain(opts *RootOptions, path string) (*ValidationResult, error) {
	b := chain.New(newStaticEngine(), chain.WithLogger(opts.logger()))
	result := &ValidationResult{File: path}

	if _, err := loadChain(path, b); err != nil {
		if isReadFailure(err) {
			return nil, err
		}
		result.Errors = append(result.Errors, toValidationError(err))
		return result, nil
	}
	for _, m := range b.Modules() {
		result.Modules = append(result.Modules, m.ModuleID())
	}
	if err := b.LoadAllParameters(); err != nil {
		result.Errors = append(result.Errors, toValidationError(err))
		return result, nil
	}
	result.Valid = true
	return result, nil
}

// newStaticEngine returns an engine for commands that build a chain but
// never run it.
func newStaticEngine() *engine.Engine {
	return engine.New(engine.WithCatalog(modules.Catalog()))
}
