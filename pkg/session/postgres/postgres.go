// Package postgres provides a PostgreSQL session backend for wq.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/leapstack-labs/wq/pkg/session"
	"github.com/leapstack-labs/wq/pkg/session/sqlsession"
)

// Session implements session.Session for PostgreSQL.
type Session struct {
	sqlsession.Base
}

// New creates a new PostgreSQL session.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		Base: sqlsession.Base{Logger: logger},
	}
}

// Connect establishes a connection to PostgreSQL.
func (s *Session) Connect(ctx context.Context, cfg session.Config) error {
	dsn := buildDSN(cfg)

	s.Logger.Debug("connecting to postgres", slog.String("uri", cfg.URI), slog.String("database", cfg.Database))

	if err := s.Open(ctx, "pgx", dsn); err != nil {
		return err
	}
	s.DB.SetMaxOpenConns(1)
	s.Cfg = cfg
	return nil
}

// buildDSN constructs a PostgreSQL connection string. A URI that already
// looks like a DSN (postgres:// or key=value) is used as is.
func buildDSN(cfg session.Config) string {
	if strings.HasPrefix(cfg.URI, "postgres://") || strings.HasPrefix(cfg.URI, "postgresql://") || strings.Contains(cfg.URI, "=") {
		return cfg.URI
	}

	host, port := "localhost", 5432
	if cfg.URI != "" {
		h, p, err := net.SplitHostPort(cfg.URI)
		if err != nil {
			h = cfg.URI
		} else if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
		host = h
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d sslmode=%s", host, port, sslmode)
	if cfg.Database != "" {
		dsn += fmt.Sprintf(" dbname=%s", cfg.Database)
	}
	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	if cfg.ConnectTimeout > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", max(1, int(cfg.ConnectTimeout.Seconds())))
	}
	return dsn
}

// Describe reports the server version string.
func (s *Session) Describe(ctx context.Context) ([]session.Fact, error) {
	return s.DescribeVersion(ctx, "Server version", "SELECT version()")
}

func init() {
	session.Register("postgres", func(logger *slog.Logger) session.Session { return New(logger) })
}
