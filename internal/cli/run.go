package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/odakahirokazu/ANLNext/internal/chain"
	"github.com/odakahirokazu/ANLNext/internal/engine"
	"github.com/odakahirokazu/ANLNext/internal/modules"
	"github.com/odakahirokazu/ANLNext/internal/store"
	"github.com/odakahirokazu/ANLNext/internal/tracing"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Loops int64
}

// RunResult is the outcome of one run.
type RunResult struct {
	RunID       string           `json:"run_id"`
	ChainFile   string           `json:"chain_file"`
	NumLoop     int64            `json:"num_loop"`
	Parallel    int              `json:"parallel"`
	Status      string           `json:"status"`
	FailedPhase string           `json:"failed_phase,omitempty"`
	Counters    engine.Counters  `json:"counters"`
	Flags       map[string]int64 `json:"flags"`

	eng *engine.Engine
}

// RenderText writes the engine summary.
func (r *RunResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "chain %s: %s\n\n", r.ChainFile, r.Status)
	return r.eng.Summary(w)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <chain-file>",
		Short: "Run an analysis chain",
		Long: `Build the chain described by a CUE, YAML or HCL file and drive it through
its lifecycle: Define, parameter loading, PreInitialize, Initialize, the
event loop and Finalize.

The loop count comes from --loops or the file's num_loop; -1 runs until a
module quits. With --db the run, its parameters and its counters are
recorded in the run journal.

Example:
  anlnext run chain.yaml --loops 100000
  anlnext run chain.cue --parallel 4 --db runs.db
  anlnext run chain.hcl --trace stdout --console`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(opts, args[0], cmd)
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&opts.Loops, "loops", 0, "number of events (overrides num_loop; -1 = until a module quits)")
	flags.Int64("display-period", 0, "events between progress messages (0 = derived from the loop count)")
	flags.Int("parallel", 1, "number of parallel chain replicas")
	flags.String("db", "", "path to the SQLite run journal")
	flags.String("trace", "none", "trace exporter (none|stdout|file|otlp)")
	flags.Bool("console", false, "log progress every display period")

	v := rootOpts.Viper
	_ = v.BindPFlag("display_period", flags.Lookup("display-period"))
	_ = v.BindPFlag("parallel", flags.Lookup("parallel"))
	_ = v.BindPFlag("db", flags.Lookup("db"))
	_ = v.BindPFlag("tracing.exporter", flags.Lookup("trace"))
	_ = v.BindPFlag("console", flags.Lookup("console"))

	return cmd
}

func runChain(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg := opts.Config
	logger := opts.logger()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping the event loop", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	provider, err := tracing.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure tracing", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("error flushing traces", "error", err)
		}
	}()

	runID := engine.UUIDv7Generator{}.Generate()

	eng := engine.New(
		engine.WithLogger(logger),
		engine.WithTracer(provider.Tracer()),
		engine.WithParallel(cfg.Parallel),
		engine.WithCatalog(modules.Catalog()),
		engine.WithIDGenerator(engine.NewFixedGenerator(runID)),
	)
	chainOpts := []chain.Option{chain.WithLogger(logger), chain.WithConsole(cfg.Console)}
	b := chain.New(eng, chainOpts...)

	def, err := loadChain(path, b)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load chain", err)
	}

	numLoop := opts.Loops
	if !cmd.Flags().Changed("loops") {
		if def.NumLoop == nil {
			msg := "no loop count: pass --loops or set num_loop in the chain file"
			_ = formatter.Error(ErrCodeGeneric, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		numLoop = *def.NumLoop
	}
	period := cfg.DisplayPeriod
	if period == 0 && def.DisplayPeriod != nil {
		period = *def.DisplayPeriod
	}
	if period > 0 {
		chain.WithDisplayPeriod(period)(b)
	}

	var journal *store.Store
	if cfg.DB != "" {
		journal, err = store.Open(cfg.DB)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open run journal", err)
		}
		defer func() {
			if err := journal.Close(); err != nil {
				logger.Error("error closing run journal", "error", err)
			}
		}()
		err = journal.BeginRun(ctx, store.Run{
			ID:        runID,
			ChainFile: path,
			NumLoop:   numLoop,
			Parallel:  eng.Parallel(),
			StartedAt: time.Now(),
		})
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		b.Modify(func(b *chain.Builder) error {
			return journal.WriteParameters(ctx, runID, b.Modules())
		})
	}

	logger.Info("run starting", "run_id", runID, "chain", path, "num_loop", numLoop, "parallel", eng.Parallel())
	runErr := b.Run(ctx, numLoop)

	result := &RunResult{
		RunID:     runID,
		ChainFile: path,
		NumLoop:   numLoop,
		Parallel:  eng.Parallel(),
		Status:    "ok",
		Counters:  eng.Counters(),
		Flags:     eng.FlagCounts(),
		eng:       eng,
	}
	if runErr != nil {
		result.Status = "failed"
		if phase, _, ok := chain.FailedPhase(runErr); ok {
			result.FailedPhase = strings.TrimSuffix(phase.String(), "()")
		} else {
			result.FailedPhase = strings.TrimSuffix(chain.PhaseLoadParameters.String(), "()")
		}
	}

	if journal != nil {
		// The run's context may be canceled by now; the journal still records it.
		jctx := context.WithoutCancel(ctx)
		if err := journal.WriteCounters(jctx, runID, result.Counters); err != nil {
			return WrapExitError(ExitCommandError, "failed to record counters", err)
		}
		if err := journal.FinishRun(jctx, runID, result.Status, time.Now()); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run status", err)
		}
	}

	if runErr != nil {
		if err := formatter.Failure(result, errorCode(runErr), runErr.Error()); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	return formatter.Success(result)
}
