package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/wq/pkg/session"
)

// Reply is the scripted outcome of one statement.
type Reply struct {
	Result *session.Result
	Err    error
}

// FakeSession is a scripted session.Session. Statements are matched by their
// exact text; unknown statements succeed without rows.
type FakeSession struct {
	mu sync.Mutex

	ConnectErr error
	Replies    map[string]Reply
	Facts      []session.Fact

	Connected bool
	Closed    bool
	Config    session.Config
	Executed  []string
}

// NewFakeSession creates a fake with no scripted replies.
func NewFakeSession() *FakeSession {
	return &FakeSession{Replies: make(map[string]Reply)}
}

// On scripts the reply for stmt and returns the fake for chaining.
func (f *FakeSession) On(stmt string, res *session.Result, err error) *FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Replies[stmt] = Reply{Result: res, Err: err}
	return f
}

// Connect records cfg and fails with ConnectErr when set.
func (f *FakeSession) Connect(ctx context.Context, cfg session.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.Connected = true
	f.Config = cfg
	return nil
}

// Execute returns the scripted reply for stmt.
func (f *FakeSession) Execute(ctx context.Context, stmt string) (*session.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Executed = append(f.Executed, stmt)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := f.Replies[stmt]
	if !ok {
		return &session.Result{}, nil
	}
	if r.Err != nil {
		return nil, &session.ExecutionError{Statement: stmt, Err: r.Err}
	}
	return r.Result, nil
}

// Close marks the session closed.
func (f *FakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Describe returns the scripted facts.
func (f *FakeSession) Describe(_ context.Context) ([]session.Fact, error) {
	return f.Facts, nil
}

// Statements returns the statements executed so far.
func (f *FakeSession) Statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Executed...)
}

// Rows builds a row-returning result from literal cells. The literal "null"
// becomes an absent value.
func Rows(cols []string, rows ...[]string) *session.Result {
	res := &session.Result{HasRows: true, Columns: cols}
	for _, cells := range rows {
		row := make(session.Row, len(cells))
		for i, c := range cells {
			if !strings.EqualFold(c, "null") {
				row[i] = sql.NullString{String: c, Valid: true}
			}
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

// RegisterFake registers typ in the session registry so that
// session.Connect hands out f.
func RegisterFake(typ string, f *FakeSession) {
	session.Register(typ, func(*slog.Logger) session.Session { return f })
}
