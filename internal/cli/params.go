package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/odakahirokazu/ANLNext/internal/chain"
)

// ParamsResult is the chain and the parameter values it would run with.
type ParamsResult struct {
	File       string          `json:"file"`
	Parameters json.RawMessage `json:"parameters"`

	render func(io.Writer) error
}

// RenderText prints the chain table and every visible parameter.
func (r *ParamsResult) RenderText(w io.Writer) error {
	return r.render(w)
}

// NewParamsCommand creates the params command.
func NewParamsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params <chain-file>",
		Short: "Print the parameters a chain would run with",
		Long: `Build a chain, apply the parameters of its file and print the module table
followed by the value of every parameter. Nothing is run.

Example:
  anlnext params chain.yaml
  anlnext params chain.cue --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParams(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runParams(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	eng := newStaticEngine()
	b := chain.New(eng, chain.WithLogger(opts.logger()))
	if _, err := loadChain(path, b); err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load chain", err)
	}
	if err := b.LoadAllParameters(); err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to load parameters", err)
	}

	raw, err := b.ParametersJSON()
	if err != nil {
		return fmt.Errorf("render parameters: %w", err)
	}
	if err := eng.SetModules(b.Modules()); err != nil {
		return err
	}

	return formatter.Success(&ParamsResult{
		File:       path,
		Parameters: raw,
		render: func(w io.Writer) error {
			if err := eng.ChainTable(w); err != nil {
				return err
			}
			fmt.Fprintln(w)
			return eng.PrintParameters(w)
		},
	})
}
