// Package style provides consistent terminal styling using Lipgloss.
package style

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Success style for positive outcomes (green)
	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")).
		Bold(true)

	// Warning style for cautionary messages (yellow)
	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color("11")).
		Bold(true)

	// Error style for failures (red)
	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	// Info style for stage headers (blue)
	Info = lipgloss.NewStyle().
		Foreground(lipgloss.Color("12"))

	// Dim style for secondary information (gray)
	Dim = lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	// Bold style for emphasis
	Bold = lipgloss.NewStyle().
		Bold(true)

	SuccessPrefix = Success.Render("✓")
	WarningPrefix = Warning.Render("⚠")
	ErrorPrefix   = Error.Render("✗")
	ArrowPrefix   = Info.Render("==>")
)

// Stage prints a pipeline stage header, e.g. "==> Fetching wsta@0.5.0"
func Stage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", ArrowPrefix, Bold.Render(fmt.Sprintf(format, args...)))
}

// Done prints a success line
func Done(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", SuccessPrefix, fmt.Sprintf(format, args...))
}

// Warn prints a warning line
func Warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", WarningPrefix, fmt.Sprintf(format, args...))
}

// Fail prints an error line
func Fail(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", ErrorPrefix, fmt.Sprintf(format, args...))
}

// Detail prints an indented, dimmed line
func Detail(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "    %s\n", Dim.Render(fmt.Sprintf(format, args...)))
}
