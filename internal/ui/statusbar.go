package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"proxigesture.klederson.com/internal/monitor"
)

// RenderStatusBar renders the bottom status bar. errMsg, when set, replaces
// the running indicator.
func RenderStatusBar(width int, st monitor.Status, logSize int, errMsg string) string {
	status := ""
	switch {
	case errMsg != "":
		status = StyleStatusError.Render("[" + errMsg + "]")
	case st.Running:
		status = StyleStatusRunning.Render("[MONITORING]")
	default:
		status = StyleStatusPaused.Render("[PAUSED]")
	}

	info := fmt.Sprintf(" Modality: %s  Samples: %d  Log: %d  Gestures: %d  Dropped: %d  Range: 0-%.1f",
		st.Modality, st.Samples, logSize, st.Gestures, st.Malformed+st.Dropped, st.MaxRange)

	content := status + StyleStatusBar.Foreground(ColorGreen).Render(info)

	gap := width - 2 - lipgloss.Width(content)
	if gap < 0 {
		gap = 0
	}

	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}
