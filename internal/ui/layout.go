package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout joins the graph panel and detector panel horizontally, with
// the menu bar and optional gesture banner on top and the status bar on
// the bottom.
func ComposeLayout(menuBar, banner, graphPanel, detectorPanel, statusBar string) string {
	middle := lipgloss.JoinHorizontal(lipgloss.Top, graphPanel, detectorPanel)
	if banner == "" {
		return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
	}
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, banner, middle, statusBar)
}

// RenderGraphPanel wraps graph content with a styled border. The graph itself
// is rendered by the graph package.
func RenderGraphPanel(width, height int, graphContent, legend string) string {
	content := graphContent + "\n" + legend
	return StylePanelBorder.Width(width - 2).Height(height - 2).Render(content)
}
