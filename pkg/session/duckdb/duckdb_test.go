package duckdb

import (
	"context"
	"testing"

	"github.com/leapstack-labs/wq/internal/testutil"
	"github.com/leapstack-labs/wq/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabasePath(t *testing.T) {
	tests := []struct {
		name     string
		cfg      session.Config
		expected string
	}{
		{name: "empty", cfg: session.Config{}, expected: ""},
		{name: "memory", cfg: session.Config{URI: ":memory:"}, expected: ""},
		{name: "uri", cfg: session.Config{URI: "warehouse.duckdb"}, expected: "warehouse.duckdb"},
		{name: "database fallback", cfg: session.Config{Database: "other.duckdb"}, expected: "other.duckdb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, databasePath(tt.cfg))
		})
	}
}

func TestSession_Roundtrip(t *testing.T) {
	ctx := context.Background()
	s := New(testutil.NewTestLogger(t))
	require.NoError(t, s.Connect(ctx, session.Config{URI: ":memory:"}))
	t.Cleanup(func() { _ = s.Close() })

	_, err := s.Execute(ctx, "CREATE TABLE t (id INTEGER, label VARCHAR)")
	require.NoError(t, err)
	_, err = s.Execute(ctx, "INSERT INTO t VALUES (1, 'one'), (2, NULL)")
	require.NoError(t, err)

	res, err := s.Execute(ctx, "SELECT id, label FROM t ORDER BY id")
	require.NoError(t, err)
	require.True(t, res.HasRows)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "one", res.Rows[0][1].String)
	assert.False(t, res.Rows[1][1].Valid)

	facts, err := s.Describe(ctx)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.NotEmpty(t, facts[0].Value)
}

func TestRegistered(t *testing.T) {
	assert.True(t, session.IsRegistered("duckdb"))
}
