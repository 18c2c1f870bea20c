// Package output provides styled console output for wq commands.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Status symbols.
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "!"
)

// Rule widths match the framing of the preview console output.
const (
	RuleWidth       = 41
	DoubleRuleWidth = 43
)

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Header  lipgloss.Style
	Prompt  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Success: r.NewStyle().Foreground(lipgloss.Color("2")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("1")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("3")),
		Muted:   r.NewStyle().Faint(true),
		Bold:    r.NewStyle().Bold(true),
		Header:  r.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		Prompt:  r.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// Renderer writes styled lines to an output and an error stream.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer for out and errOut. Colors are used only
// when out is a terminal, noColor is false and NO_COLOR is unset.
func NewRenderer(out, errOut io.Writer, noColor bool) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), noColor)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY, noColor bool) *Renderer {
	lr := lipgloss.NewRenderer(out)
	if !isTTY || noColor || termenv.EnvNoColor() {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		isTTY:  isTTY,
		styles: newStyles(lr),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Styles returns the renderer styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// IsTTY reports whether the output stream is a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Writer returns the output stream.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the error stream.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Println writes a line to the output stream.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to the output stream.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Print writes text to the output stream unchanged.
func (r *Renderer) Print(s string) {
	_, _ = io.WriteString(r.out, s)
}

// Success writes a success line to the output stream.
func (r *Renderer) Success(msg string) {
	_, _ = fmt.Fprintln(r.out, r.styles.Success.Render(SymbolSuccess+" "+msg))
}

// Error writes an error line to the error stream.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render(SymbolError+" "+msg))
}

// Warning writes a warning line to the error stream.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render(SymbolWarning+" "+msg))
}

// Muted writes a dimmed line to the output stream.
func (r *Renderer) Muted(msg string) {
	_, _ = fmt.Fprintln(r.out, r.styles.Muted.Render(msg))
}

// Header writes a bold header line.
func (r *Renderer) Header(title string) {
	_, _ = fmt.Fprintln(r.out, r.styles.Header.Render(title))
}

// Rule writes a single horizontal rule.
func (r *Renderer) Rule() {
	_, _ = fmt.Fprintln(r.out, r.styles.Muted.Render(strings.Repeat("─", RuleWidth)))
}

// DoubleRule writes a double horizontal rule.
func (r *Renderer) DoubleRule() {
	_, _ = fmt.Fprintln(r.out, strings.Repeat("═", DoubleRuleWidth))
}

// FormatKeyValue formats a label and value for plain listings.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("%s: %s", key, value)
}
