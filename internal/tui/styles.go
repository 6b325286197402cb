package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/devmon/internal/urls"
	"github.com/muurk/devmon/internal/version"
)

// Application branding constants
const (
	AppName   = "DEVMON"
	GitHubURL = urls.Repository
)

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 72 // Minimum supported terminal width
	MinTerminalRows  = 12
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF0000") // Red

	TextColor      = lipgloss.Color("#FFFFFF") // White
	SubtleColor    = lipgloss.Color("#626262") // Gray
	BorderColor    = lipgloss.Color("#7D56F4") // Purple (same as primary)
	HighlightColor = lipgloss.Color("#43BF6D") // Green (same as secondary)
)

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	StatusOKStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	StatusErrorStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true)

	EmptyStateStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Padding(1, 2)

	// ColumnHeaderStyle is for the device table column titles
	ColumnHeaderStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	RowStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(HighlightColor).
				Bold(true)
)

// BuildHeaderContent creates header content with app name, version and a
// right-aligned summary
func BuildHeaderContent(summary string, width int) string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " v" + AppVersion())

	right := lipgloss.NewStyle().
		Foreground(SubtleColor).
		Render(summary)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, lipgloss.NewStyle().Width(gap).Render(""), right)
}

// RenderApplicationContainer wraps a screen with the header, a footer and an
// outer border sized to the terminal.
func RenderApplicationContainer(content, summary, footer string, terminalWidth, terminalHeight int) string {
	if terminalWidth < MinTerminalWidth {
		terminalWidth = MinTerminalWidth
	}
	if terminalHeight < MinTerminalRows {
		terminalHeight = MinTerminalRows
	}
	inner := terminalWidth - 4

	header := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(inner).
		Padding(0, 1).
		Render(BuildHeaderContent(summary, inner-2))

	styledFooter := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(inner).
		Padding(0, 1).
		Render(footer)

	body := lipgloss.NewStyle().
		Width(inner).
		Height(terminalHeight - 2 - lipgloss.Height(header) - lipgloss.Height(styledFooter)).
		Render(content)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(terminalWidth - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, body, styledFooter))

	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Left, lipgloss.Top, bordered)
}

// ListHeight returns the rows left for the device list inside the container
func ListHeight(terminalHeight int) int {
	// border (2) + header (2) + footer (3) + status line (1)
	h := terminalHeight - 8
	if h < 3 {
		h = 3
	}
	return h
}
