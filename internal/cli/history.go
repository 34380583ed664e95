package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/odakahirokazu/ANLNext/internal/engine"
	"github.com/odakahirokazu/ANLNext/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB    string
	Limit int
}

// RunRecord is a journal entry as printed by history.
type RunRecord struct {
	ID         string `json:"id"`
	ChainFile  string `json:"chain_file"`
	NumLoop    int64  `json:"num_loop"`
	Parallel   int    `json:"parallel"`
	Status     string `json:"status"`
	Put        int64  `json:"put"`
	Get        int64  `json:"get"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// ParameterRecord is one recorded parameter value.
type ParameterRecord struct {
	ModuleID string `json:"module_id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Value    string `json:"value"`
}

// HistoryList is the result of history without a run id.
type HistoryList struct {
	Runs []RunRecord `json:"runs"`
}

// RenderText prints one row per run, newest first.
func (h *HistoryList) RenderText(w io.Writer) error {
	if len(h.Runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTATUS\tSTARTED\tPUT\tGET\tCHAIN")
	for _, r := range h.Runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", r.ID, r.Status, r.StartedAt, r.Put, r.Get, r.ChainFile)
	}
	return tw.Flush()
}

// HistoryDetail is the result of history with a run id.
type HistoryDetail struct {
	Run        RunRecord         `json:"run"`
	Parameters []ParameterRecord `json:"parameters"`
	Counters   engine.Counters   `json:"counters"`
}

// RenderText prints the run, its counters and its parameters.
func (h *HistoryDetail) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", h.Run.ID)
	fmt.Fprintf(tw, "chain\t%s\n", h.Run.ChainFile)
	fmt.Fprintf(tw, "status\t%s\n", h.Run.Status)
	fmt.Fprintf(tw, "started\t%s\n", h.Run.StartedAt)
	if h.Run.FinishedAt != "" {
		fmt.Fprintf(tw, "finished\t%s\n", h.Run.FinishedAt)
	}
	fmt.Fprintf(tw, "loops\t%d\n", h.Run.NumLoop)
	fmt.Fprintf(tw, "replicas\t%d\n", h.Run.Parallel)
	fmt.Fprintf(tw, "PUT\t%d\n", h.Counters.Put)
	fmt.Fprintf(tw, "GET\t%d\n", h.Counters.Get)

	if len(h.Counters.Modules) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "MODULE\tENTRY\tOK\tERROR\tSKIP\tQUIT")
		for _, mc := range h.Counters.Modules {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", mc.ModuleID, mc.Entry, mc.OK, mc.Error, mc.Skip, mc.Quit)
		}
	}
	if len(h.Parameters) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "MODULE\tPARAMETER\tTYPE\tVALUE")
		for _, p := range h.Parameters {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ModuleID, p.Name, p.Type, p.Value)
		}
	}
	return tw.Flush()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show runs recorded in the run journal",
		Long: `List the runs recorded by "anlnext run --db", newest first, or show one
run with its counters and the parameter values it ran with.

Example:
  anlnext history --db runs.db
  anlnext history --db runs.db 0190a5c4-7e1f-7b2a-9c3d-000000000001`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runHistory(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to the SQLite run journal (default: db from config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 = all)")

	return cmd
}

func runHistory(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	path := opts.DB
	if path == "" {
		path = opts.Config.DB
	}
	if path == "" {
		msg := "no run journal: pass --db or set db in the config"
		_ = formatter.Error(ErrCodeConfig, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	// Open would create an empty journal; history only reads existing ones.
	if _, err := os.Stat(path); err != nil {
		msg := fmt.Sprintf("run journal not found: %s", path)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return WrapExitError(ExitCommandError, msg, err)
	}

	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open run journal", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if runID == "" {
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		list := &HistoryList{Runs: make([]RunRecord, len(runs))}
		for i, r := range runs {
			list.Runs[i] = toRunRecord(r)
		}
		return formatter.Success(list)
	}

	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		msg := fmt.Sprintf("run not found: %s", runID)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	params, err := st.ReadParameters(ctx, runID)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read parameters", err)
	}
	counters, err := st.ReadCounters(ctx, runID)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read counters", err)
	}

	detail := &HistoryDetail{
		Run:        toRunRecord(run),
		Parameters: make([]ParameterRecord, len(params)),
		Counters:   counters,
	}
	for i, p := range params {
		detail.Parameters[i] = ParameterRecord{ModuleID: p.ModuleID, Name: p.Name, Type: p.TypeName, Value: p.ValueJSON}
	}
	return formatter.Success(detail)
}

func toRunRecord(r store.Run) RunRecord {
	rec := RunRecord{
		ID:        r.ID,
		ChainFile: r.ChainFile,
		NumLoop:   r.NumLoop,
		Parallel:  r.Parallel,
		Status:    r.Status,
		Put:       r.Put,
		Get:       r.Get,
		StartedAt: r.StartedAt.UTC().Format(time.RFC3339),
	}
	if !r.FinishedAt.IsZero() {
		rec.FinishedAt = r.FinishedAt.UTC().Format(time.RFC3339)
	}
	return rec
}
