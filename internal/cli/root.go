// Package cli provides the command-line interface for wq.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/wq/internal/cli/commands"
	"github.com/leapstack-labs/wq/internal/cli/config"
	"github.com/spf13/cobra"

	// Session backends register themselves on import.
	_ "github.com/leapstack-labs/wq/pkg/session/cassandra"
	_ "github.com/leapstack-labs/wq/pkg/session/duckdb"
	_ "github.com/leapstack-labs/wq/pkg/session/postgres"
	_ "github.com/leapstack-labs/wq/pkg/session/sqlite"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile, envFile string

	rootCmd := &cobra.Command{
		Use:   "wq",
		Short: "wq - CQL query preview tool",
		Long: `wq executes CQL statements against a Cassandra compatible cluster and
renders the results for preview.

Statements are split on semicolons, run in order, printed to the console
and written as a Markdown document into a preview directory.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, envFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd, cfg.Verbose)
			if path := config.GetConfigFileUsed(); path != "" {
				logger.Debug("using config file", "path", path)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, config.ConfigKey(), cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Built with Go
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./wq.yaml)")
	pf.StringVar(&envFile, "env-file", "", "dotenv file to load (default: ./.env)")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.Bool("no-color", false, "Disable colored output")
	pf.String("type", "", "Backend type (cassandra|scylla|postgres|sqlite|duckdb)")
	pf.String("uri", "", "Node address or DSN (env: SCYLLA_URI)")
	pf.String("keyspace", "", "Initial keyspace")
	pf.String("database", "", "Database name or path for SQL backends")
	pf.String("username", "", "Username for authentication")
	pf.String("password", "", "Password for authentication")
	pf.String("consistency", "", "Consistency level for Cassandra")
	pf.Duration("connect-timeout", 0, "Connection timeout")
	pf.Duration("metadata-refresh", 0, "Cluster metadata refresh interval")
	pf.String("preview-file", "", "Name of the results file in the preview directory")
	pf.String("history-file", "", "Path to the interactive session history")
	pf.String("state-file", "", "Path to the run history database (empty disables recording)")

	_ = rootCmd.RegisterFlagCompletionFunc("type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"cassandra", "scylla", "postgres", "sqlite", "duckdb"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("consistency", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"ANY", "ONE", "TWO", "THREE", "QUORUM", "ALL", "LOCAL_QUORUM", "EACH_QUORUM", "LOCAL_ONE"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewReplCommand())
	rootCmd.AddCommand(commands.NewInfoCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// newLogger builds the diagnostic logger. Diagnostics go to stderr so they
// never mix with rendered results.
func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for wq.

To load completions:

Bash:
  $ source <(wq completion bash)

Zsh:
  $ wq completion zsh > "${fpath[1]}/_wq"

Fish:
  $ wq completion fish | source

PowerShell:
  PS> wq completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
