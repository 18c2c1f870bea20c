// Package report renders statement results for the console and for the
// Markdown preview document.
//
// Every result is rendered twice: a console preview whose cells are
// truncated to a fixed width, and a document fragment that keeps full cell
// values in a Markdown table.
package report

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/wq/pkg/session"
	"github.com/leapstack-labs/wq/pkg/statement"
)

// Console cell sizing.
const (
	CellWidth   = 16
	TruncateAt  = 13
	Ellipsis    = "..."
	NullDisplay = "null"
)

// Messages for statements that return no row set.
const (
	MsgContextSwitched = "Database context switched."
	MsgNoRows          = "Statement executed successfully (no rows returned)."
)

// Rendered holds both representations of one statement outcome.
type Rendered struct {
	Preview  string
	Fragment string
	RowCount int
	Tabular  bool
}

// Result renders the outcome of stmt. Results without a row set become a
// single informational line.
func Result(stmt string, res *session.Result) Rendered {
	if res == nil || !res.HasRows {
		return Message(OutcomeMessage(stmt))
	}
	return Rows(res.Rows)
}

// OutcomeMessage returns the informational line for a statement that
// executed without returning rows.
func OutcomeMessage(stmt string) string {
	if statement.IsContextSwitch(stmt) {
		return MsgContextSwitched
	}
	return MsgNoRows
}

// Message renders a single informational line.
func Message(msg string) Rendered {
	return Rendered{
		Preview:  msg + "\n",
		Fragment: "*" + msg + "*\n\n",
	}
}

// Rows renders a row set. Zero rows produce only the row-count summary.
func Rows(rows []session.Row) Rendered {
	var preview, doc strings.Builder
	preview.WriteString("\n")

	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, len(row))
		full := make([]string, len(row))
		for i, v := range row {
			full[i] = FullText(v.String, v.Valid)
			line[i] = ConsoleText(full[i])
		}
		preview.WriteString(consoleLine(line))
		preview.WriteString("\n")
		cells = append(cells, full)
	}

	if len(cells) > 0 {
		writeMarkdownTable(&doc, cells)
	}

	summary := Summary(len(rows))
	preview.WriteString("\n" + summary + "\n")
	fmt.Fprintf(&doc, "*%s*\n\n", summary)

	return Rendered{
		Preview:  preview.String(),
		Fragment: doc.String(),
		RowCount: len(rows),
		Tabular:  true,
	}
}

// Summary is the row-count line shown after every row set.
func Summary(n int) string {
	return fmt.Sprintf("%d row(s) returned.", n)
}

// FullText is the unabridged text of a value.
func FullText(s string, valid bool) string {
	if !valid {
		return NullDisplay
	}
	return s
}

// ConsoleText shortens values longer than CellWidth characters to their
// first TruncateAt characters followed by an ellipsis. Terminal escape
// sequences are stripped and other control characters become spaces.
func ConsoleText(full string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, text.StripEscape(full))

	if utf8.RuneCountInString(clean) > CellWidth {
		return string([]rune(clean)[:TruncateAt]) + Ellipsis
	}
	return clean
}

// consoleLine formats one fixed-width, pipe-delimited preview row.
func consoleLine(cells []string) string {
	var b strings.Builder
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(text.Pad(c, CellWidth, ' '))
		b.WriteString(" |")
	}
	return b.String()
}

// writeMarkdownTable writes a table with positional column headers.
func writeMarkdownTable(b *strings.Builder, rows [][]string) {
	cols := len(rows[0])

	b.WriteString("|")
	for i := 0; i < cols; i++ {
		fmt.Fprintf(b, " Column %d |", i+1)
	}
	b.WriteString("\n|")
	for i := 0; i < cols; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")

	for _, row := range rows {
		b.WriteString("|")
		for _, cell := range row {
			fmt.Fprintf(b, " %s |", EscapeCell(cell))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

var cellEscaper = strings.NewReplacer(
	"|", `\|`,
	"\r\n", "<br>",
	"\n", "<br>",
)

// EscapeCell makes a value safe to place inside a Markdown table cell.
// Pipes are backslash-escaped and line breaks become <br>.
func EscapeCell(s string) string {
	return cellEscaper.Replace(s)
}
