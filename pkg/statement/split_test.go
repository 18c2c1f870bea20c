package statement

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit_Basic(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single statement",
			text: "SELECT * FROM users",
			want: []string{"SELECT * FROM users"},
		},
		{
			name: "multiple statements",
			text: "SELECT 1; SELECT 2; SELECT 3",
			want: []string{"SELECT 1", "SELECT 2", "SELECT 3"},
		},
		{
			name: "trailing terminator",
			text: "USE ks;",
			want: []string{"USE ks"},
		},
		{
			name: "empty segments dropped",
			text: "SELECT 1;; ;\n\t; SELECT 2",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "multiline statement is trimmed but keeps inner newlines",
			text: "\n  SELECT id,\n    name\n  FROM users ;\n",
			want: []string{"SELECT id,\n    name\n  FROM users"},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only",
			text: "   \n\t  ",
			want: nil,
		},
		{
			name: "terminators only",
			text: ";;;",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.text))
		})
	}
}

func TestSplit_Quotes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "terminator inside single quotes",
			text: "INSERT INTO t (k, v) VALUES (1, 'a;b'); SELECT 2",
			want: []string{"INSERT INTO t (k, v) VALUES (1, 'a;b')", "SELECT 2"},
		},
		{
			name: "terminator inside double quotes",
			text: `SELECT "weird;col" FROM t; SELECT 1`,
			want: []string{`SELECT "weird;col" FROM t`, "SELECT 1"},
		},
		{
			name: "doubled single quote stays in string",
			text: "SELECT 'it''s ok; really'; SELECT 2",
			want: []string{"SELECT 'it''s ok; really'", "SELECT 2"},
		},
		{
			name: "doubled double quote stays in string",
			text: `SELECT "a""b;c" FROM t`,
			want: []string{`SELECT "a""b;c" FROM t`},
		},
		{
			name: "other delimiter inside string is literal",
			text: `SELECT 'say "hi"; now' ; SELECT "it's"`,
			want: []string{`SELECT 'say "hi"; now'`, `SELECT "it's"`},
		},
		{
			name: "unterminated string swallows the rest",
			text: "SELECT 'a;b",
			want: []string{"SELECT 'a;b"},
		},
		{
			name: "unterminated string after a complete statement",
			text: "SELECT 1; SELECT 'x; SELECT 2; ",
			want: []string{"SELECT 1", "SELECT 'x; SELECT 2;"},
		},
		{
			name: "comment marker inside string is literal",
			text: "SELECT '--not a comment'; SELECT 2",
			want: []string{"SELECT '--not a comment'", "SELECT 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.text))
		})
	}
}

func TestSplit_Comments(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "comment containing terminator",
			text: "SELECT 1; -- comment with ; inside\nSELECT 2;",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "comment at end of input",
			text: "SELECT 1 -- trailing",
			want: []string{"SELECT 1"},
		},
		{
			name: "comment in the middle of a statement",
			text: "SELECT a, -- first column\n b FROM t",
			want: []string{"SELECT a,  b FROM t"},
		},
		{
			name: "only comments",
			text: "-- one\n-- two; three\n",
			want: nil,
		},
		{
			name: "comments and terminators",
			text: "; -- nothing here\n ;",
			want: nil,
		},
		{
			name: "quote inside comment does not open a string",
			text: "-- don't\nSELECT 1; SELECT 2",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "single dash is not a comment",
			text: "SELECT 3 - 1; SELECT 2",
			want: []string{"SELECT 3 - 1", "SELECT 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.text))
		})
	}
}

// Without quotes or comments the splitter behaves like a plain split on ';'.
func TestSplit_MatchesNaiveSplitWithoutQuotes(t *testing.T) {
	inputs := []string{
		"SELECT 1",
		"a;b;c",
		" a ; ; b ;",
		"CREATE TABLE t (k int PRIMARY KEY);\nINSERT INTO t (k) VALUES (1);\n",
		";;x;;",
		"\n\n",
	}

	for _, in := range inputs {
		var want []string
		for _, part := range strings.Split(in, ";") {
			if p := strings.TrimSpace(part); p != "" {
				want = append(want, p)
			}
		}
		assert.Equal(t, want, Split(in), "input %q", in)
	}
}

func TestSplit_Unicode(t *testing.T) {
	got := Split("INSERT INTO t (k, v) VALUES (1, 'héllo; wörld'); SELECT '日本'")
	assert.Equal(t, []string{"INSERT INTO t (k, v) VALUES (1, 'héllo; wörld')", "SELECT '日本'"}, got)
}

func TestTerminated(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"complete statement", "SELECT 1;", true},
		{"complete with trailing whitespace", "SELECT 1;  \n", true},
		{"complete with trailing comment", "SELECT 1; -- done", true},
		{"no terminator", "SELECT 1", false},
		{"content after terminator", "SELECT 1; SELECT", false},
		{"terminator inside open string", "SELECT 'a;", false},
		{"terminator inside comment", "SELECT 1 -- ;", false},
		{"empty", "", false},
		{"bare terminator", ";", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Terminated(tt.text))
		})
	}
}

func TestIsContextSwitch(t *testing.T) {
	assert.True(t, IsContextSwitch("USE ks"))
	assert.True(t, IsContextSwitch("  use my_keyspace"))
	assert.True(t, IsContextSwitch("Use \"Mixed\""))
	assert.False(t, IsContextSwitch("USER_TABLE"))
	assert.False(t, IsContextSwitch("SELECT * FROM use_log"))
	assert.False(t, IsContextSwitch("USE"))
}
