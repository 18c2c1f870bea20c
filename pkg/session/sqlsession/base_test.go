package sqlsession

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/wq/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockBase(t *testing.T) (*Base, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Base{DB: db}, mock
}

func TestBase_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB", setupDB: false},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &Base{}
			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			assert.NoError(t, base.Close())
			assert.Nil(t, base.DB)
		})
	}
}

func TestBase_Execute_WithoutConnection(t *testing.T) {
	base := &Base{}
	_, err := base.Execute(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection not established")
}

func TestBase_Execute_Rows(t *testing.T) {
	base, mock := newMockBase(t)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery("SELECT id, name, note, created FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "note", "created"}).
			AddRow(int64(1), []byte("alice"), nil, ts).
			AddRow(int64(2), "bob", "a|b", ts))

	res, err := base.Execute(context.Background(), "SELECT id, name, note, created FROM users")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.True(t, res.HasRows)
	assert.Equal(t, []string{"id", "name", "note", "created"}, res.Columns)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, sql.NullString{String: "1", Valid: true}, res.Rows[0][0])
	assert.Equal(t, sql.NullString{String: "alice", Valid: true}, res.Rows[0][1])
	assert.False(t, res.Rows[0][2].Valid, "nil should be a null value")
	assert.Equal(t, "2024-01-02T03:04:05Z", res.Rows[0][3].String)
	assert.Equal(t, "a|b", res.Rows[1][2].String)
}

func TestBase_Execute_EmptyRowSet(t *testing.T) {
	base, mock := newMockBase(t)

	mock.ExpectQuery("SELECT id FROM users WHERE 1=0").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	res, err := base.Execute(context.Background(), "SELECT id FROM users WHERE 1=0")
	require.NoError(t, err)
	assert.True(t, res.HasRows)
	assert.Empty(t, res.Rows)
}

func TestBase_Execute_NoColumns(t *testing.T) {
	base, mock := newMockBase(t)

	mock.ExpectQuery("CREATE TABLE users").WillReturnRows(sqlmock.NewRows(nil))

	res, err := base.Execute(context.Background(), "CREATE TABLE users (id INT)")
	require.NoError(t, err)
	assert.False(t, res.HasRows)
}

func TestBase_Execute_QueryError(t *testing.T) {
	base, mock := newMockBase(t)

	mock.ExpectQuery("SELEKT").WillReturnError(assert.AnError)

	_, err := base.Execute(context.Background(), "SELEKT 1")
	require.Error(t, err)

	var execErr *session.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "SELEKT 1", execErr.Statement)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestBase_Execute_RowError(t *testing.T) {
	base, mock := newMockBase(t)

	mock.ExpectQuery("SELECT id FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow(int64(1)).
			AddRow(int64(2)).
			RowError(1, assert.AnError))

	_, err := base.Execute(context.Background(), "SELECT id FROM users")
	require.Error(t, err)

	var execErr *session.ExecutionError
	assert.ErrorAs(t, err, &execErr)
}

func TestBase_DescribeVersion(t *testing.T) {
	base, mock := newMockBase(t)

	mock.ExpectQuery("SELECT version()").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("PostgreSQL 16.2"))

	facts, err := base.DescribeVersion(context.Background(), "Server version", "SELECT version()")
	require.NoError(t, err)
	assert.Equal(t, []session.Fact{{Name: "Server version", Value: "PostgreSQL 16.2"}}, facts)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		input    any
		expected string
	}{
		{nil, "null"},
		{"hello", "hello"},
		{[]byte("bytes"), "bytes"},
		{int64(42), "42"},
		{3.14, "3.14"},
		{true, "true"},
		{time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), "2024-05-06T07:08:09Z"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatValue(tt.input))
	}
}
