package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSession records Connect calls and fails them on demand.
type stubSession struct {
	connectErr error
	connected  bool
	closed     bool
	deadline   bool
}

func (s *stubSession) Connect(ctx context.Context, _ Config) error {
	_, s.deadline = ctx.Deadline()
	if s.connectErr != nil {
		return s.connectErr
	}
	s.connected = true
	return nil
}

func (s *stubSession) Execute(_ context.Context, _ string) (*Result, error) {
	return &Result{}, nil
}

func (s *stubSession) Close() error {
	s.closed = true
	return nil
}

func TestUnknownTypeError_Error(t *testing.T) {
	err := &UnknownTypeError{
		Type:      "fake_db",
		Available: []string{"cassandra", "sqlite"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "fake_db")
	assert.Contains(t, msg, "cassandra")
	assert.Contains(t, msg, "wq.yaml")
}

func TestRegister(t *testing.T) {
	Register("test_session_internal", func(_ *slog.Logger) Session { return &stubSession{} })

	assert.True(t, IsRegistered("test_session_internal"))
	factory, ok := Get("test_session_internal")
	require.True(t, ok)
	assert.NotNil(t, factory)
	assert.Contains(t, ListTypes(), "test_session_internal")
}

func TestListTypes_Sorted(t *testing.T) {
	Register("zz_test_session", func(_ *slog.Logger) Session { return &stubSession{} })
	Register("aa_test_session", func(_ *slog.Logger) Session { return &stubSession{} })

	types := ListTypes()
	assert.IsNonDecreasing(t, types)
}

func TestNew_EmptyType(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "session type not specified", err.Error())
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(Config{Type: "nonexistent_db"}, nil)
	require.Error(t, err)

	var unknown *UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nonexistent_db", unknown.Type)
}

func TestConnect(t *testing.T) {
	stub := &stubSession{}
	Register("test_connect_ok", func(_ *slog.Logger) Session { return stub })

	s, err := Connect(context.Background(), Config{Type: "test_connect_ok"}, nil)
	require.NoError(t, err)
	assert.Same(t, stub, s)
	assert.True(t, stub.connected)
	assert.True(t, stub.deadline, "connect should run under the connect timeout")
}

func TestConnect_FailureIsConnectionError(t *testing.T) {
	cause := errors.New("connection refused")
	stub := &stubSession{connectErr: cause}
	Register("test_connect_fail", func(_ *slog.Logger) Session { return stub })

	_, err := Connect(context.Background(), Config{Type: "test_connect_fail", URI: "10.0.0.1:9042"}, nil)
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "10.0.0.1:9042", connErr.Address)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "10.0.0.1:9042")
	assert.True(t, stub.closed, "failed session should be closed")
}

func TestDecodeError_IsErrDecode(t *testing.T) {
	err := &DecodeError{Err: errors.New("bad varint")}
	assert.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "bad varint")

	wrapped := &ExecutionError{Statement: "SELECT 1", Err: errors.New("syntax error")}
	assert.NotErrorIs(t, wrapped, ErrDecode)
	assert.Equal(t, "syntax error", wrapped.Error())
}
