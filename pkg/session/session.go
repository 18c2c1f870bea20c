// Package session provides the database capability wq executes statements
// against.
//
// This package contains the contract that every backend implements. Concrete
// backends live in pkg/session subdirectories and register themselves with
// Register from their init functions; import them with a blank identifier.
package session

import (
	"context"
	"database/sql"
	"time"
)

// Default connection settings.
const (
	DefaultType            = "cassandra"
	DefaultURI             = "172.17.0.2:9042"
	DefaultConsistency     = "ONE"
	DefaultConnectTimeout  = 3 * time.Second
	DefaultMetadataRefresh = 10 * time.Second
)

// Config holds what a backend needs to establish a session.
type Config struct {
	Type string

	// URI is the node address. Cassandra accepts a comma separated list of
	// host[:port]; SQL backends treat it as a DSN or file path.
	URI      string
	Keyspace string
	Database string
	Username string
	Password string

	Consistency     string
	ConnectTimeout  time.Duration
	MetadataRefresh time.Duration

	Options map[string]string
}

// Row is one result row. An invalid entry is a null value; a valid entry
// holds the value's canonical text form.
type Row []sql.NullString

// Result is the outcome of executing a single statement.
type Result struct {
	// HasRows is false for acknowledgments that carry no row set, such as
	// schema changes or context switches.
	HasRows bool
	Columns []string
	Rows    []Row
}

// Session executes statements against a database.
type Session interface {
	// Connect establishes the session using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Execute runs one statement and returns its rows or acknowledgment.
	// Failures are reported as *ExecutionError; a row set that could not be
	// read is reported as an error matching ErrDecode.
	Execute(ctx context.Context, stmt string) (*Result, error)

	// Close releases the session.
	Close() error
}

// Fact is a named piece of server information.
type Fact struct {
	Name  string
	Value string
}

// Describer is implemented by sessions that can report server details.
type Describer interface {
	Describe(ctx context.Context) ([]Fact, error)
}
