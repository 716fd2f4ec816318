package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/dimitrmo/phirepass-widgets/internal/config"
)

// Styles for the lines printed around the raw-mode session.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

func banner(cfg config.Config) string {
	return fmt.Sprintf("%s %s\n%s\n",
		titleStyle.Render("phirepass"),
		infoStyle.Render(fmt.Sprintf("connecting to node %s via %s", cfg.NodeID, cfg.Endpoint())),
		hintStyle.Render("Press Ctrl-] to quit."),
	)
}

func errorLine(err error) string {
	return errorStyle.Render("Error: " + err.Error())
}
