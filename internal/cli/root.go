package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootOptions holds global flags for all commands and the configuration
// resolved before a subcommand runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Viper holds every configuration source; subcommands bind their flags
	// to it.
	Viper  *viper.Viper
	Config Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the anlnext CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Viper: viper.New()}

	cmd := &cobra.Command{
		Use:   "anlnext",
		Short: "ANLNext - event-loop analysis chains",
		Long: `Run analysis chains: ordered modules, configured by parameters, that
process a stream of events through a fixed lifecycle.

Chains are described in CUE, YAML or HCL files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := loadConfig(opts.Viper, opts.ConfigFile)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			logger, err := newLogger(cmd.ErrOrStderr(), opts.Format, opts.Verbose, cfg.LogLevel)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to configure logging", err)
			}
			opts.Config = cfg
			opts.Logger = logger
			slog.SetDefault(logger)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: ./anlnext.yaml if present)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewParamsCommand(opts))
	cmd.AddCommand(NewModulesCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
