package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/wq/internal/state"
	"github.com/leapstack-labs/wq/pkg/report"
	"github.com/leapstack-labs/wq/pkg/session"
	"github.com/leapstack-labs/wq/pkg/statement"
)

// Summary describes one batch.
type Summary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Rows      int
	Path      string
	StartedAt time.Time
	Duration  time.Duration

	// Statements holds the outcome of each statement in execution order.
	Statements []state.StatementRun
}

// Execute splits query and runs every statement in order. Failed statements
// are recorded in the document and do not stop the batch, so Execute never
// returns an error. The session stays connected for further batches.
func (e *Engine) Execute(ctx context.Context, query string) (*report.Document, Summary) {
	start := time.Now()
	sum := Summary{RunID: uuid.NewString(), StartedAt: start.UTC()}
	logger := e.logger.With("run_id", sum.RunID)

	stmts := statement.Split(query)
	sum.Total = len(stmts)

	if len(stmts) == 0 {
		logger.Debug("no statements in input")
		e.console.Println(report.MsgNoStatements)
		sum.Duration = time.Since(start)
		return report.EmptyDocument(), sum
	}

	logger.Info("starting batch", "statements", len(stmts))
	e.console.Printf("Executing %d statement(s)...\n\n", len(stmts))

	doc := report.NewDocument(len(stmts))
	for i, stmt := range stmts {
		idx := i + 1
		e.console.Rule()
		e.console.Printf("Statement %d/%d: %s\n", idx, len(stmts), stmt)
		e.console.Rule()

		doc.Statement(idx, stmt)

		rendered, err := e.executeStatement(ctx, logger, stmt)
		if err != nil {
			sum.Failed++
			logger.Debug("statement failed", "index", idx, "error", err)
			e.console.Error(fmt.Sprintf("Error executing statement %d: %v", idx, err))
			_, _ = fmt.Fprintln(e.console.ErrWriter())
			doc.Failed(err)
			sum.Statements = append(sum.Statements, state.StatementRun{
				Index: idx, Statement: stmt, Error: err.Error(),
			})
			continue
		}

		sum.Succeeded++
		sum.Rows += rendered.RowCount
		e.console.Print(rendered.Preview)
		doc.Append(rendered)
		e.console.Success(fmt.Sprintf("Statement %d executed successfully", idx))
		e.console.Println()
		doc.Succeeded()
		sum.Statements = append(sum.Statements, state.StatementRun{
			Index: idx, Statement: stmt, Succeeded: true, Rows: rendered.RowCount,
		})
	}

	e.state = StateConnected
	sum.Duration = time.Since(start)
	logger.Info("batch finished",
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"duration", sum.Duration)
	return doc, sum
}

// executeStatement runs one statement and renders its outcome. A result that
// could not be decoded counts as a statement without rows.
func (e *Engine) executeStatement(ctx context.Context, logger *slog.Logger, stmt string) (report.Rendered, error) {
	if e.sess == nil {
		return report.Rendered{}, fmt.Errorf("session is closed")
	}

	e.state = StateExecuting
	res, err := e.sess.Execute(ctx, stmt)

	e.state = StateRendering
	decodeErr := errors.Is(err, session.ErrDecode)
	switch {
	case err != nil && !decodeErr:
		return report.Rendered{}, err
	case statement.IsContextSwitch(stmt):
		return report.Message(report.MsgContextSwitched), nil
	case decodeErr:
		logger.Debug("result not decodable", "error", err)
		return report.Message(report.MsgNoRows), nil
	default:
		return report.Result(stmt, res), nil
	}
}

// Run executes query and persists the document into dir. Only a failure to
// write the document is returned as an error.
func (e *Engine) Run(ctx context.Context, query, dir string) (Summary, error) {
	doc, sum := e.Execute(ctx, query)

	e.state = StatePersisting
	path, err := doc.Persist(dir, e.cfg.PreviewFile)
	if err != nil {
		e.state = StateFailed
		err = fmt.Errorf("failed to write results: %w", err)
		e.record(ctx, sum, err)
		return sum, err
	}
	sum.Path = path
	e.state = StateDone
	e.record(ctx, sum, nil)

	e.logger.Debug("results written", "run_id", sum.RunID, "path", path)

	if sum.Total == 0 {
		e.console.Printf("\nResults written to: %s\n", path)
		return sum, nil
	}
	e.console.Println()
	e.console.DoubleRule()
	e.console.Printf("Results written to: %s\n", path)
	e.console.DoubleRule()
	return sum, nil
}

// record stores the finished run in the history, if one is configured.
// A history failure is logged and never fails the run.
func (e *Engine) record(ctx context.Context, sum Summary, runErr error) {
	if e.cfg.History == nil {
		return
	}

	run := &state.Run{
		ID:          sum.RunID,
		TargetType:  e.cfg.Session.Type,
		TargetURI:   e.cfg.Session.URI,
		PreviewPath: sum.Path,
		Status:      state.RunStatusCompleted,
		Total:       sum.Total,
		Succeeded:   sum.Succeeded,
		Failed:      sum.Failed,
		Rows:        sum.Rows,
		StartedAt:   sum.StartedAt,
		Duration:    sum.Duration,
	}
	switch {
	case runErr != nil:
		run.Status = state.RunStatusFailed
		run.Error = runErr.Error()
	case sum.Failed > 0:
		run.Status = state.RunStatusPartial
	}

	if err := e.cfg.History.RecordRun(ctx, run, sum.Statements); err != nil {
		e.logger.Warn("failed to record run", "run_id", sum.RunID, "error", err)
	}
}

// Preview connects, runs query, writes the document into dir and closes the
// session.
func Preview(ctx context.Context, cfg Config, query, dir string) (Summary, error) {
	e, err := New(ctx, cfg)
	if err != nil {
		return Summary{}, err
	}
	defer func() { _ = e.Close() }()

	return e.Run(ctx, query, dir)
}
