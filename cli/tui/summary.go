package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Summary is the post-call overview shown after a --tui call.
type Summary struct {
	Func     string
	Env      string
	State    string
	Duration time.Duration
	Lines    int
}

// RenderSummary renders s as a row of stat boxes.
func RenderSummary(s Summary) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(s.Func))
	b.WriteString(" ")
	b.WriteString(LineStyle.Render("in"))
	b.WriteString(" ")
	b.WriteString(EnvStyle.Render(s.Env))
	b.WriteString("\n")

	boxes := []string{
		renderStatBox("State", s.State, stateColor(s.State)),
		renderStatBox("Duration", s.Duration.Truncate(time.Millisecond).String(), highlightColor),
		renderStatBox("Output lines", fmt.Sprintf("%d", s.Lines), mutedColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	return b.String()
}

func renderStatBox(label, value string, color lipgloss.Color) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		statValueStyle.Foreground(color).Render(value),
		statLabelStyle.Render(label))
	return statBoxStyle.BorderForeground(color).Render(content)
}
