// Package sqlite provides a SQLite session backend for wq.
//
// Import this package with a blank identifier to register the backend:
//
//	import _ "github.com/leapstack-labs/wq/pkg/session/sqlite"
package sqlite

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/wq/pkg/session"
	"github.com/leapstack-labs/wq/pkg/session/sqlsession"

	_ "modernc.org/sqlite" // sqlite driver
)

// Session implements session.Session for SQLite.
type Session struct {
	sqlsession.Base
}

// New creates a new SQLite session.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		Base: sqlsession.Base{Logger: logger},
	}
}

// Connect opens the database file named by cfg.URI (or cfg.Database).
// An empty path opens an in-memory database.
func (s *Session) Connect(ctx context.Context, cfg session.Config) error {
	path := cfg.URI
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		path = ":memory:"
	}

	s.Logger.Debug("connecting to sqlite", slog.String("path", path))

	if err := s.Open(ctx, "sqlite", path); err != nil {
		return err
	}
	// Each new connection to ":memory:" is a fresh database.
	s.DB.SetMaxOpenConns(1)
	s.Cfg = cfg
	return nil
}

// Describe reports the SQLite library version.
func (s *Session) Describe(ctx context.Context) ([]session.Fact, error) {
	return s.DescribeVersion(ctx, "SQLite version", "SELECT sqlite_version()")
}

func init() {
	session.Register("sqlite", func(logger *slog.Logger) session.Session { return New(logger) })
}
