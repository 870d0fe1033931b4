package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#382110"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00635D"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D93025"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#1a73e8"))
	urlStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00635D")).Underline(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E87400"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
)

func Banner() string {
	return titleStyle.Render("docsearch")
}

func formatScore(score float64) string {
	return scoreStyle.Render(fmt.Sprintf("%.3f", score))
}
