// Package sqlsession provides the database/sql plumbing shared by the SQL
// session backends. Embed Base in a backend and implement Connect.
package sqlsession

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/wq/pkg/session"
)

// Base provides common database/sql functionality for sessions.
type Base struct {
	DB     *sql.DB
	Cfg    session.Config
	Logger *slog.Logger
}

// Open opens and pings a database/sql connection for driverName.
func (b *Base) Open(ctx context.Context, driverName, dsn string) error {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driverName, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", driverName, err)
	}

	b.DB = db
	return nil
}

// Close closes the database connection.
func (b *Base) Close() error {
	if b.DB == nil {
		return nil
	}
	b.logger().Debug("closing database connection")
	err := b.DB.Close()
	b.DB = nil
	return err
}

// Execute runs stmt and collects its rows. Statements without result
// columns are reported as non-row acknowledgments.
func (b *Base) Execute(ctx context.Context, stmt string) (*session.Result, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := b.DB.QueryContext(ctx, stmt)
	if err != nil {
		return nil, &session.ExecutionError{Statement: stmt, Err: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &session.DecodeError{Err: err}
	}

	if len(cols) == 0 {
		// Drain so driver errors surface through rows.Err.
		for rows.Next() {
		}
		if err := rows.Err(); err != nil {
			return nil, &session.ExecutionError{Statement: stmt, Err: err}
		}
		return &session.Result{}, nil
	}

	res := &session.Result{HasRows: true, Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, &session.DecodeError{Err: err}
		}

		row := make(session.Row, len(cols))
		for i, v := range values {
			if v == nil {
				continue
			}
			row[i] = sql.NullString{String: FormatValue(v), Valid: true}
		}
		res.Rows = append(res.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, &session.ExecutionError{Statement: stmt, Err: err}
	}

	b.logger().Debug("statement executed", slog.Int("rows", len(res.Rows)))
	return res, nil
}

func (b *Base) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// DescribeVersion runs a single-value version query and reports it as a fact.
func (b *Base) DescribeVersion(ctx context.Context, name, query string) ([]session.Fact, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	var version string
	if err := b.DB.QueryRowContext(ctx, query).Scan(&version); err != nil {
		return nil, fmt.Errorf("failed to query server version: %w", err)
	}
	return []session.Fact{{Name: name, Value: version}}, nil
}

// FormatValue returns the text form of a scanned database/sql value.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", val)
	}
}
