// Package engine runs batches of statements against a session and builds
// the preview report.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/leapstack-labs/wq/internal/cli/output"
	"github.com/leapstack-labs/wq/internal/state"
	"github.com/leapstack-labs/wq/pkg/session"
)

// State is the lifecycle position of an engine.
type State int

// Engine states.
const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateExecuting
	StateRendering
	StatePersisting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateExecuting:
		return "executing"
	case StateRendering:
		return "rendering"
	case StatePersisting:
		return "persisting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds engine configuration.
type Config struct {
	// Session is passed to the session backend on connect.
	Session session.Config
	// PreviewFile is the document name inside the preview directory.
	PreviewFile string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Console receives progress output (optional, output is dropped if nil)
	Console *output.Renderer
	// History records finished runs (optional)
	History state.Recorder
}

// Engine executes statements over one session. It is not safe for
// concurrent use; batches run strictly one after another.
type Engine struct {
	sess    session.Session
	cfg     Config
	logger  *slog.Logger
	console *output.Renderer
	state   State
}

// New connects a session for cfg and returns an engine ready to run. A
// failed connection is returned as *session.ConnectionError.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	e := newEngine(cfg)
	e.state = StateConnecting

	e.logger.Debug("connecting", "type", cfg.Session.Type, "uri", cfg.Session.URI)

	sess, err := session.Connect(ctx, cfg.Session, e.logger)
	if err != nil {
		e.state = StateFailed
		e.logger.Debug("connection failed", "error", err)
		return nil, err
	}

	e.sess = sess
	e.state = StateConnected
	return e, nil
}

// NewWithSession wraps an already connected session.
func NewWithSession(sess session.Session, cfg Config) *Engine {
	e := newEngine(cfg)
	e.sess = sess
	e.state = StateConnected
	return e
}

func newEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	console := cfg.Console
	if console == nil {
		console = output.NewRendererWithTTY(io.Discard, io.Discard, false, true)
	}
	return &Engine{
		cfg:     cfg,
		logger:  logger,
		console: console,
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Session returns the underlying session.
func (e *Engine) Session() session.Session {
	return e.sess
}

// Close closes the session.
func (e *Engine) Close() error {
	if e.sess == nil {
		return nil
	}
	err := e.sess.Close()
	e.sess = nil
	return err
}
