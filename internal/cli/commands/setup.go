package commands

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/wq/internal/cli/config"
	"github.com/leapstack-labs/wq/internal/cli/output"
	"github.com/leapstack-labs/wq/internal/engine"
	"github.com/leapstack-labs/wq/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer

	// History is set by OpenHistory; nil disables run recording.
	History state.Recorder
}

// NewCommandContext collects the config, logger and renderer for cmd.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.GetConfig(ctx)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.NoColor),
	}
}

// EngineConfig builds the engine configuration for this command.
func (c *CommandContext) EngineConfig() engine.Config {
	return engine.Config{
		Session:     c.Cfg.Target.Session(),
		PreviewFile: c.Cfg.PreviewFile,
		Logger:      c.Logger,
		Console:     c.Renderer,
		History:     c.History,
	}
}

// OpenHistory opens the run history store so that runs started through this
// context are recorded. A store that cannot be opened is logged and
// recording is skipped. The returned cleanup function must be called.
func (c *CommandContext) OpenHistory(ctx context.Context) func() {
	if c.Cfg.StateFile == "" {
		return func() {}
	}
	store, err := state.OpenStore(ctx, c.Cfg.StateFile, c.Logger)
	if err != nil {
		c.Logger.Warn("run history disabled", "path", c.Cfg.StateFile, "error", err)
		return func() {}
	}
	c.History = store
	return func() {
		c.History = nil
		_ = store.Close()
	}
}

// Connect opens an engine for the configured target.
// The returned cleanup function must be called (typically via defer).
func (c *CommandContext) Connect(ctx context.Context) (*engine.Engine, func(), error) {
	eng, err := engine.New(ctx, c.EngineConfig())
	if err != nil {
		return nil, nil, err
	}
	return eng, func() { _ = eng.Close() }, nil
}
