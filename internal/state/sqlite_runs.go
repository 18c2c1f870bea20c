package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrRunNotFound is returned by GetRun when no run matches.
var ErrRunNotFound = errors.New("run not found")

// RecordRun stores a finished run and its statements in one transaction.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run, stmts []StatementRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	s.logger.Debug("recording run", slog.String("id", run.ID), slog.Int("statements", len(stmts)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, target_type, target_uri, preview_path, status, total,
			succeeded, failed, row_count, started_at, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.TargetType, run.TargetURI, run.PreviewPath, string(run.Status), run.Total,
		run.Succeeded, run.Failed, run.Rows, run.StartedAt.UnixMilli(), run.Duration.Milliseconds(),
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, st := range stmts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO statement_runs (run_id, idx, statement, succeeded, row_count, error)
			VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, st.Index, st.Statement, st.Succeeded, st.Rows, nullString(st.Error),
		)
		if err != nil {
			return fmt.Errorf("failed to insert statement %d: %w", st.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, target_type, target_uri, preview_path, status, total,
	succeeded, failed, row_count, started_at, duration_ms, error`

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by ID or unique ID prefix.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, []StatementRun, error) {
	if s.db == nil {
		return nil, nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? || '%' LIMIT 2`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get run: %w", err)
	}
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, nil, fmt.Errorf("failed to scan run: %w", err)
		}
		matches = append(matches, run)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to get run: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
	default:
		return nil, nil, fmt.Errorf("run id %q is ambiguous", id)
	}
	run := matches[0]

	stmts, err := s.statementRuns(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, stmts, nil
}

func (s *SQLiteStore) statementRuns(ctx context.Context, runID string) ([]StatementRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, statement, succeeded, row_count, error
		FROM statement_runs WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get statements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stmts []StatementRun
	for rows.Next() {
		var st StatementRun
		var errMsg sql.NullString
		if err := rows.Scan(&st.Index, &st.Statement, &st.Succeeded, &st.Rows, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}
		st.Error = errMsg.String
		stmts = append(stmts, st)
	}
	return stmts, rows.Err()
}

func scanRun(rows *sql.Rows) (*Run, error) {
	var run Run
	var status string
	var startedAt, durationMS int64
	var errMsg sql.NullString
	err := rows.Scan(&run.ID, &run.TargetType, &run.TargetURI, &run.PreviewPath, &status,
		&run.Total, &run.Succeeded, &run.Failed, &run.Rows, &startedAt, &durationMS, &errMsg)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.Error = errMsg.String
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
