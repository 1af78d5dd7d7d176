// Package output prints short status lines for CLI commands.
package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Writer prints status lines with a leading marker.
type Writer struct {
	out     io.Writer
	success lipgloss.Style
	warning lipgloss.Style
	hint    lipgloss.Style
}

// New creates a Writer. With noColor set markers are printed unstyled.
func New(out io.Writer, noColor bool) *Writer {
	w := &Writer{
		out:     out,
		success: lipgloss.NewStyle(),
		warning: lipgloss.NewStyle(),
		hint:    lipgloss.NewStyle(),
	}
	if !noColor {
		w.success = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
		w.warning = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
		w.hint = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	}
	return w
}

// Status prints msg after icon, or indented when icon is empty.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
		return
	}
	_, _ = fmt.Fprintf(w.out, "  %s\n", msg)
}

// Statusf is Status with formatting.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a line marked with a check.
func (w *Writer) Success(msg string) {
	w.Status(w.success.Render("✓"), msg)
}

// Successf is Success with formatting.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a line marked with an exclamation mark.
func (w *Writer) Warning(msg string) {
	w.Status(w.warning.Render("!"), msg)
}

// Warningf is Warning with formatting.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Hint prints a dimmed, indented follow-up line.
func (w *Writer) Hint(msg string) {
	w.Status("", w.hint.Render(msg))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
