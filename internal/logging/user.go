package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// User-facing status lines. These go to the terminal, separate from the
// debug log file.

var (
	// Stdout and Stderr are swapped out by commands and tests.
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr

	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// UserInfo prints an info message to stderr.
func UserInfo(format string, args ...interface{}) {
	fmt.Fprintln(Stderr, infoStyle.Render("ℹ "+fmt.Sprintf(format, args...)))
}

// UserSuccess prints a success message to stderr.
func UserSuccess(format string, args ...interface{}) {
	fmt.Fprintln(Stderr, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// UserWarning prints a warning message to stderr.
func UserWarning(format string, args ...interface{}) {
	fmt.Fprintln(Stderr, warningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// UserError prints an error message to stderr with the "Error:" prefix.
func UserError(format string, args ...interface{}) {
	fmt.Fprintln(Stderr, errorStyle.Render("Error:")+" "+fmt.Sprintf(format, args...))
}

// UserDim prints a muted line to stderr.
func UserDim(format string, args ...interface{}) {
	fmt.Fprintln(Stderr, dimStyle.Render(fmt.Sprintf(format, args...)))
}
