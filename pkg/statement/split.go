// Package statement splits free-form query text into executable statements.
//
// The splitter only knows about lexical boundaries: statements end at a
// semicolon that is outside any quoted string and outside any "--" line
// comment. Quoted strings may be delimited by single or double quotes, and a
// doubled delimiter inside a string is an escaped literal. Block comments and
// backslash escapes are not recognised.
package statement

import "strings"

// Terminator ends a statement outside of strings and comments.
const Terminator = ';'

// lexState is the transient scanning state of a single Split call.
type lexState struct {
	inString  bool
	delim     rune
	inComment bool
	buf       strings.Builder

	// emitted counts non-empty statements flushed so far.
	emitted int
}

// flush appends the trimmed buffer to out when non-empty and resets it.
func (s *lexState) flush(out []string) []string {
	stmt := strings.TrimSpace(s.buf.String())
	s.buf.Reset()
	if stmt == "" {
		return out
	}
	s.emitted++
	return append(out, stmt)
}

// scan runs the lexer over text and returns the statements it terminated
// with ';' along with the final state. The buffer still holds whatever
// followed the last terminator.
func scan(text string) ([]string, *lexState) {
	var out []string
	s := &lexState{}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if !s.inString && r == '-' && i+1 < len(runes) && runes[i+1] == '-' {
			s.inComment = true
			i++
			continue
		}

		if s.inComment {
			if r == '\n' {
				s.inComment = false
			}
			continue
		}

		switch {
		case !s.inString && (r == '\'' || r == '"'):
			s.inString = true
			s.delim = r
			s.buf.WriteRune(r)
		case s.inString && r == s.delim:
			s.buf.WriteRune(r)
			if i+1 < len(runes) && runes[i+1] == s.delim {
				s.buf.WriteRune(runes[i+1])
				i++
				continue
			}
			s.inString = false
		case !s.inString && r == Terminator:
			out = s.flush(out)
		default:
			s.buf.WriteRune(r)
		}
	}

	return out, s
}

// Split partitions text into trimmed, non-empty statements in source order.
// The terminating semicolons and all "--" comments are removed. A trailing
// statement without a terminator is kept. An unterminated string runs to the
// end of the input, so any semicolons after its opening quote are literal.
func Split(text string) []string {
	out, s := scan(text)
	return s.flush(out)
}

// Terminated reports whether text ends on a statement boundary: at least one
// statement was terminated, no string is left open, and nothing but
// whitespace or comments follows the last terminator.
func Terminated(text string) bool {
	_, s := scan(text)
	if s.inString || s.emitted == 0 {
		return false
	}
	return strings.TrimSpace(s.buf.String()) == ""
}

// IsContextSwitch reports whether stmt changes the active keyspace or
// database rather than returning rows.
func IsContextSwitch(stmt string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stmt)), "USE ")
}
