package display

import "github.com/charmbracelet/lipgloss"

var (
	dimColor    = lipgloss.Color("7")
	accentColor = lipgloss.Color("12")
	outputColor = lipgloss.Color("15")

	// Prose panel
	messageStyle = lipgloss.NewStyle().
			Padding(0, 1)

	// Code panel
	codeStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)

	// Output panel under the code
	outputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimColor).
			Foreground(outputColor).
			Padding(0, 1)
)
