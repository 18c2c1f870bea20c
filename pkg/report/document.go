package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PreviewFileName is the document written inside the preview directory.
const PreviewFileName = ".pw.cql.md"

// Document text.
const (
	Title            = "# CQL Query Results"
	MsgNoStatements  = "No valid CQL statements found."
	sectionSeparator = "---"
)

// ErrAlreadyPersisted is returned when a document is persisted twice.
var ErrAlreadyPersisted = errors.New("document already persisted")

// Document is the append-only preview document for one run. Sections are
// added in execution order and never rewritten.
type Document struct {
	buf       strings.Builder
	total     int
	sections  int
	persisted bool
}

// NewDocument starts a document for a run of total statements.
func NewDocument(total int) *Document {
	d := &Document{total: total}
	fmt.Fprintf(&d.buf, "%s\n\n", Title)
	fmt.Fprintf(&d.buf, "Executed %d statement(s)\n\n", total)
	fmt.Fprintf(&d.buf, "%s\n\n", sectionSeparator)
	return d
}

// EmptyDocument is the document for input that held no statements.
func EmptyDocument() *Document {
	d := &Document{}
	fmt.Fprintf(&d.buf, "%s\n\n%s\n", Title, MsgNoStatements)
	return d
}

// Statement opens the section for the statement at 1-based index idx.
func (d *Document) Statement(idx int, stmt string) {
	d.sections++
	fmt.Fprintf(&d.buf, "## Statement %d/%d\n\n", idx, d.total)
	fmt.Fprintf(&d.buf, "```cql\n%s\n```\n\n", stmt)
}

// Append adds a rendered outcome to the current section.
func (d *Document) Append(r Rendered) {
	d.buf.WriteString(r.Fragment)
}

// Succeeded closes the current section after a successful statement.
func (d *Document) Succeeded() {
	d.buf.WriteString("\n")
}

// Failed records err as the outcome of the current section.
func (d *Document) Failed(err error) {
	fmt.Fprintf(&d.buf, "**Error:** %v\n\n", err)
}

// Sections returns the number of statement sections written.
func (d *Document) Sections() int {
	return d.sections
}

// String returns the document text.
func (d *Document) String() string {
	return d.buf.String()
}

// WriteTo writes the document text to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, d.buf.String())
	return int64(n), err
}

// previewFileMode keeps the preview readable by other local users.
const previewFileMode os.FileMode = 0o644

// Persist writes the document to dir/name, creating dir when needed. The
// file is replaced atomically. A document can be persisted only once.
func (d *Document) Persist(dir, name string) (string, error) {
	if d.persisted {
		return "", ErrAlreadyPersisted
	}
	if name == "" {
		name = PreviewFileName
	}
	path := filepath.Join(dir, name)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create preview directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create preview file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(previewFileMode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to set preview file mode: %w", err)
	}
	if _, err := d.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write preview file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to close preview file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to rename preview file: %w", err)
	}

	d.persisted = true
	return path, nil
}
