// Package tui provides Bubble Tea components for the condacall CLI.
//
// TUI is opt-in only (call --tui). It shows the relayed child output and
// the call's progress; the result itself is rendered by the caller once
// the program exits.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#3B82F6")
)

// Styles shared by the TUI and the colored relay output.
var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)

	// EnvStyle tags relayed lines with their environment.
	EnvStyle = lipgloss.NewStyle().Foreground(highlightColor)

	// LineStyle is relayed child output.
	LineStyle = lipgloss.NewStyle().Foreground(mutedColor)

	SpinnerStyle = lipgloss.NewStyle().Foreground(warningColor)

	ErrorStyle = lipgloss.NewStyle().Foreground(errorColor)

	// BannerStyle frames a remote traceback.
	BannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(errorColor).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1)

	statBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)

	statLabelStyle = lipgloss.NewStyle().Foreground(mutedColor).Align(lipgloss.Center)

	statValueStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
)

// stateColor maps a call state to its color.
func stateColor(state string) lipgloss.Color {
	switch state {
	case StateSucceeded:
		return successColor
	case StateRunning:
		return warningColor
	case StateRemoteError, StateTransportError, StateCanceled:
		return errorColor
	default:
		return mutedColor
	}
}

// StateStyle returns the style for a call state.
func StateStyle(state string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(stateColor(state))
}
