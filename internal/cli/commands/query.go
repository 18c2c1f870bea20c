package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/leapstack-labs/wq/internal/engine"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Query string
	Input string
	Watch bool

	// querySet is true when --query was given, even if empty.
	querySet bool
}

// errNoInput signals that no query text was supplied on a terminal.
var errNoInput = errors.New("no query given")

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [preview_dir]",
		Short: "Execute statements and write a results preview",
		Long: `Execute one or more semicolon separated statements in order and
render every result.

Results are printed to the console with cells truncated to a fixed width,
and written in full as Markdown to .pw.cql.md inside preview_dir
(default: the current directory). A failing statement is reported and
the remaining statements still run.

Query text is read from --query, from --input, or from piped stdin. With no
input on a terminal, an interactive session starts instead.`,
		Example: `  # Run inline statements
  wq query -q "USE demo; SELECT * FROM users;" ./preview

  # Run a file and re-run it whenever it is saved
  wq query --input queries.cql --watch ./preview

  # Pipe statements in
  cat queries.cql | wq query ./preview`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "Statements to execute")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read statements from file")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run when the --input file changes")
	cmd.MarkFlagsMutuallyExclusive("query", "input")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	if opts.Watch && opts.Input == "" {
		return fmt.Errorf("--watch requires --input")
	}

	cmdCtx := NewCommandContext(cmd)
	opts.querySet = cmd.Flags().Changed("query")

	query, err := readQuery(opts, cmd.InOrStdin())
	if errors.Is(err, errNoInput) {
		return runREPL(cmd, cmdCtx)
	}
	if err != nil {
		return err
	}

	closeHistory := cmdCtx.OpenHistory(cmd.Context())
	defer closeHistory()

	if opts.Watch {
		return runWatch(cmd.Context(), cmdCtx, opts.Input, dir)
	}

	_, err = engine.Preview(cmd.Context(), cmdCtx.EngineConfig(), query, dir)
	return err
}

// readQuery resolves the query text. Sources in order: --query, --input,
// then stdin unless stdin is a terminal.
func readQuery(opts *QueryOptions, stdin io.Reader) (string, error) {
	switch {
	case opts.querySet || opts.Query != "":
		return opts.Query, nil
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(content), nil
	case isTerminal(stdin):
		return "", errNoInput
	default:
		content, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(content), nil
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
