package commands

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/wq/internal/cli/output"
	"github.com/leapstack-labs/wq/internal/state"
	"github.com/spf13/cobra"
)

const (
	defaultRunsLimit = 20
	shortIDLen       = 8
	statementWidth   = 60
)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	Limit int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}

	cmd := &cobra.Command{
		Use:   "runs [run_id]",
		Short: "List recorded preview runs",
		Long: `List the most recent preview runs recorded in the state file, or show
the statements of a single run. A run ID may be abbreviated to any unique
prefix.`,
		Example: `  # Show the last 20 runs
  wq runs

  # Show one run
  wq runs 3f2a9c1e`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", defaultRunsLimit, "Maximum number of runs to list")

	return cmd
}

func runRuns(cmd *cobra.Command, args []string, opts *RunsOptions) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()

	if cmdCtx.Cfg.StateFile == "" {
		return fmt.Errorf("run history is disabled (state_file is empty)")
	}
	if opts.Limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	store, err := state.OpenStore(ctx, cmdCtx.Cfg.StateFile, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer func() { _ = store.Close() }()

	r := cmdCtx.Renderer
	if len(args) == 1 {
		run, stmts, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		renderRun(r, run, stmts)
		return nil
	}

	runs, err := store.ListRuns(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		r.Muted("No runs recorded yet")
		return nil
	}
	renderRuns(r.Writer(), runs)
	return nil
}

func renderRuns(w io.Writer, runs []*state.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Status", "Statements", "Rows", "Duration", "Target"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			shortID(run.ID),
			run.StartedAt.Local().Format(time.DateTime),
			string(run.Status),
			fmt.Sprintf("%d/%d", run.Succeeded, run.Total),
			run.Rows,
			run.Duration.Round(time.Millisecond).String(),
			fmt.Sprintf("%s %s", run.TargetType, run.TargetURI),
		})
	}
	t.Render()
}

func renderRun(r *output.Renderer, run *state.Run, stmts []state.StatementRun) {
	r.Header("Run " + run.ID)
	r.Println(output.FormatKeyValue("Started", run.StartedAt.Local().Format(time.DateTime)))
	r.Println(output.FormatKeyValue("Status", string(run.Status)))
	r.Println(output.FormatKeyValue("Target", fmt.Sprintf("%s %s", run.TargetType, run.TargetURI)))
	r.Println(output.FormatKeyValue("Duration", run.Duration.Round(time.Millisecond).String()))
	if run.PreviewPath != "" {
		r.Println(output.FormatKeyValue("Preview", run.PreviewPath))
	}
	if run.Error != "" {
		r.Error(run.Error)
	}
	r.Println()

	if len(stmts) == 0 {
		r.Muted("No statements in this run")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "", "Rows", "Statement", "Error"})
	for _, st := range stmts {
		mark := output.SymbolSuccess
		if !st.Succeeded {
			mark = output.SymbolError
		}
		t.AppendRow(table.Row{st.Index, mark, st.Rows, abbreviate(st.Statement, statementWidth), st.Error})
	}
	t.Render()
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// abbreviate folds whitespace and cuts s to at most n runes.
func abbreviate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return text.Trim(s, n-3) + "..."
}
