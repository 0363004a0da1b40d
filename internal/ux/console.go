// Package ux renders operator-facing console output: colored, iconographic
// status lines and the final recovery / diagnostics summaries.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
)

// Console writes styled status lines to a single writer. It performs no
// buffering; every call emits one line.
type Console struct {
	w io.Writer
}

// NewConsole creates a console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) line(style lipgloss.Style, icon, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(c.w, style.Render(icon+" "+msg))
}

// Info emits an informational line.
func (c *Console) Info(format string, args ...interface{}) {
	c.line(infoStyle, "ℹ️ ", format, args...)
}

// Success emits a success line.
func (c *Console) Success(format string, args ...interface{}) {
	c.line(successStyle, "✅", format, args...)
}

// Warn emits a warning line.
func (c *Console) Warn(format string, args ...interface{}) {
	c.line(warnStyle, "⚠️ ", format, args...)
}

// Fail emits a failure line.
func (c *Console) Fail(format string, args ...interface{}) {
	c.line(failStyle, "❌", format, args...)
}

// Step emits an in-progress line for a running action.
func (c *Console) Step(format string, args ...interface{}) {
	c.line(stepStyle, "🔄", format, args...)
}

// Detail emits a dimmed secondary line, indented under the preceding status.
func (c *Console) Detail(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(c.w, dimStyle.Render("   "+msg))
}

// Header emits a section title with a rule underneath.
func (c *Console) Header(title string) {
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, headerStyle.Render(title))
	fmt.Fprintln(c.w, dimStyle.Render(strings.Repeat("─", len([]rune(title)))))
}

// Tail prints the last n lines of output, dimmed and indented. Used for
// failed packages in the diagnostics breakdown.
func (c *Console) Tail(output string, n int) {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
		c.Detail("… (showing last %d lines)", n)
	}
	for _, l := range lines {
		c.Detail("%s", l)
	}
}
