package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"proxigesture.klederson.com/internal/config"
)

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, provider string, running bool) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	keys := []struct{ key, label string }{
		{"S", "tart"},
		{"P", "ause"},
		{"C", "lear"},
		{"Q", "uit"},
	}

	menu := ""
	for _, k := range keys {
		menu += "  " + StyleMenuKey.Render("["+k.key+"]") + StyleMenuLabel.Render(k.label)
	}

	status := ""
	if running {
		status = StyleStatusRunning.Render("MONITORING")
	} else {
		status = StyleStatusPaused.Render("PAUSED")
	}

	if provider == "" {
		provider = "none"
	}
	sensorInfo := StyleMenuLabel.Render(fmt.Sprintf("Sensor: %s", provider))

	left := StyleMenuKey.Render(title) + menu
	right := status + "  " + sensorInfo + " "

	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
