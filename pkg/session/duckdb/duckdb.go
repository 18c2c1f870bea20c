// Package duckdb provides a DuckDB session backend for wq.
package duckdb

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/wq/pkg/session"
	"github.com/leapstack-labs/wq/pkg/session/sqlsession"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Session implements session.Session for DuckDB.
type Session struct {
	sqlsession.Base
}

// New creates a new DuckDB session.
func New(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		Base: sqlsession.Base{Logger: logger},
	}
}

// Connect opens a DuckDB database.
// Use ":memory:" (or leave the URI empty) for an in-memory database.
func (s *Session) Connect(ctx context.Context, cfg session.Config) error {
	path := databasePath(cfg)

	s.Logger.Debug("connecting to duckdb", slog.String("path", path))

	if err := s.Open(ctx, "duckdb", path); err != nil {
		return err
	}
	s.DB.SetMaxOpenConns(1)
	s.Cfg = cfg
	return nil
}

// databasePath returns the DSN for cfg; the driver opens an in-memory
// database for an empty DSN.
func databasePath(cfg session.Config) string {
	path := cfg.URI
	if path == "" {
		path = cfg.Database
	}
	if path == ":memory:" {
		return ""
	}
	return path
}

// Describe reports the DuckDB library version.
func (s *Session) Describe(ctx context.Context) ([]session.Fact, error) {
	return s.DescribeVersion(ctx, "DuckDB version", "SELECT version()")
}

func init() {
	session.Register("duckdb", func(logger *slog.Logger) session.Session { return New(logger) })
}
