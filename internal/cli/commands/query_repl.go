package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/wq/internal/cli/output"
	"github.com/leapstack-labs/wq/internal/engine"
	"github.com/leapstack-labs/wq/pkg/statement"
	"github.com/spf13/cobra"
)

const (
	promptMain     = "wq> "
	promptContinue = "...> "
)

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Long: `Start an interactive session against the configured target.

Input accumulates until a statement is terminated with a semicolon, then
the batch runs and its results are printed. Nothing is written to the
preview directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, NewCommandContext(cmd))
		},
	}
}

func runREPL(cmd *cobra.Command, cmdCtx *CommandContext) error {
	ctx := cmd.Context()

	eng, cleanup, err := cmdCtx.Connect(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	historyFile := cmdCtx.Cfg.HistoryFile
	if historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(historyFile), 0750); err != nil {
			cmdCtx.Logger.Warn("history disabled", "error", err)
			historyFile = ""
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptMain,
		HistoryFile:     historyFile,
		AutoComplete:    newKeywordCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	target := cmdCtx.Cfg.Target
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wq interactive session (%s at %s)\n", target.Type, target.URI)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	repl := newReplState(eng, cmdCtx.Renderer)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			repl.reset()
			rl.SetPrompt(promptMain)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		quit := repl.handleLine(ctx, line)
		if quit {
			break
		}
		rl.SetPrompt(repl.prompt())
	}

	return nil
}

// replState accumulates input lines into batches.
type replState struct {
	eng *engine.Engine
	r   *output.Renderer
	buf strings.Builder
}

func newReplState(eng *engine.Engine, r *output.Renderer) *replState {
	return &replState{eng: eng, r: r}
}

func (s *replState) reset() {
	s.buf.Reset()
}

func (s *replState) prompt() string {
	if s.buf.Len() > 0 {
		return promptContinue
	}
	return promptMain
}

// handleLine consumes one input line and runs the batch once it is
// terminated. Dot-commands are only recognised at the start of a batch.
// It returns true when the session should end.
func (s *replState) handleLine(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if s.buf.Len() == 0 {
		if trimmed == "" {
			return false
		}
		if strings.HasPrefix(trimmed, ".") {
			return s.handleDotCommand(trimmed)
		}
	}

	s.buf.WriteString(line)
	s.buf.WriteString("\n")

	text := s.buf.String()
	if strings.Trim(text, "; \t\r\n") == "" {
		s.reset()
		return false
	}
	if !statement.Terminated(text) {
		return false
	}

	s.reset()
	s.eng.Execute(ctx, text)
	return false
}

func (s *replState) handleDotCommand(line string) bool {
	command := strings.ToLower(strings.Fields(line)[0])

	switch command {
	case ".quit", ".exit":
		return true
	case ".help":
		printREPLHelp(s.r.Writer())
	case ".clear":
		s.r.Print("\033[H\033[2J")
	default:
		s.r.Warning(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .clear          Clear the screen
  .quit / .exit   Exit the session

Tips:
  - Statements run once the input ends with a semicolon (;)
  - Several statements may be entered before the final semicolon
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// replKeywords are offered for tab completion at the start of a line.
var replKeywords = []string{
	"SELECT", "INSERT INTO", "UPDATE", "DELETE FROM", "USE",
	"CREATE TABLE", "CREATE KEYSPACE", "CREATE INDEX", "ALTER TABLE",
	"DROP TABLE", "TRUNCATE", "DESCRIBE",
}

// newKeywordCompleter creates a readline completer for statement keywords
// and dot-commands.
func newKeywordCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(replKeywords)+4)
	for _, kw := range replKeywords {
		items = append(items, readline.PcItem(kw))
	}
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
	return readline.NewPrefixCompleter(items...)
}
