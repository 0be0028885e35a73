package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

const transcriptWidth = 80

var (
	humanStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	subtleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C"))
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
	titleStyle     = lipgloss.NewStyle().Bold(true).Underline(true)
)

// printLine writes a labelled transcript line, wrapped and indented under the
// label.
func printLine(w io.Writer, label lipgloss.Style, name, text string) {
	prefix := name + ": "
	indent := strings.Repeat(" ", lipgloss.Width(prefix))
	wrapped := wordwrap.String(text, transcriptWidth-len(indent))
	lines := strings.Split(wrapped, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = indent + lines[i]
	}
	fmt.Fprintln(w, label.Render(prefix)+strings.Join(lines, "\n"))
}
