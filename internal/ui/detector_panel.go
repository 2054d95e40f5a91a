package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"proxigesture.klederson.com/internal/gesture"
	"proxigesture.klederson.com/internal/monitor"
)

// RenderDetectorPanel renders detector and session state beside the graph.
// now is in the readings' time base; history feeds the sparkline.
func RenderDetectorPanel(st monitor.Status, now int64, history []float64, width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}

	title := StylePanelTitle.Render("DETECTOR")
	sep := StyleSeparator.Render(strings.Repeat("-", innerW))
	lines := []string{title, sep, ""}

	det := st.Detector
	fields := []struct{ label, value string }{
		{"State", stateLabel(det)},
		{"Near", yesNo(det.Near)},
		{"Cooldown", yesNo(det.InCooldown)},
		{"Last", lastGestureLabel(det, now)},
		{"Gestures", fmt.Sprintf("%d", det.Fired)},
		{"", ""},
		{"Modality", st.Modality.String()},
		{"Sensor", orDash(st.Provider)},
		{"Range", fmt.Sprintf("0-%.1f", st.MaxRange)},
		{"Samples", fmt.Sprintf("%d", st.Samples)},
		{"Malformed", fmt.Sprintf("%d", st.Malformed)},
		{"Dropped", fmt.Sprintf("%d", st.Dropped)},
	}
	for _, f := range fields {
		if f.label == "" {
			lines = append(lines, "")
			continue
		}
		label := StyleFieldLabel.Render(fmt.Sprintf("  %-10s", f.label))
		lines = append(lines, label+StyleFieldValue.Render(f.value))
	}

	lines = append(lines, "")

	barWidth := innerW - 16
	if barWidth < 5 {
		barWidth = 5
	}
	pending := StyleFieldValue.Render(fmt.Sprintf(" %d/%d", det.Pending, det.Required))
	lines = append(lines, StyleFieldLabel.Render("  Pending ")+renderPendingBar(det.Pending, det.Required, barWidth)+pending)

	if len(history) > 0 {
		sparkW := innerW - 4
		if sparkW < 10 {
			sparkW = 10
		}
		lines = append(lines, "", StyleFieldLabel.Render("  Distance:"))
		spark := renderSparkline(history, sparkW)
		lines = append(lines, "  "+lipgloss.NewStyle().Foreground(ColorGreen).Render(spark))
	}

	for len(lines) < height-2 {
		lines = append(lines, "")
	}
	if len(lines) > height-2 && height > 2 {
		lines = lines[:height-2]
	}

	content := strings.Join(lines, "\n")
	style := StylePanelBorder
	if det.State == gesture.StateAccumulating {
		style = StylePanelActive
	}
	return style.Width(width - 2).Height(height - 2).Render(content)
}

// RenderGestureBanner renders the full-width banner shown after a gesture.
// It returns "" once intensity reaches zero.
func RenderGestureBanner(width int, intensity float64, seq int) string {
	if intensity <= 0 {
		return ""
	}
	text := fmt.Sprintf("GESTURE DETECTED #%d", seq)
	pad := (width - len(text)) / 2
	if pad < 0 {
		pad = 0
	}
	line := strings.Repeat(" ", pad) + text
	style := StyleBanner
	if intensity < 0.5 {
		style = style.Background(ColorMidGreen)
	}
	return style.Width(width).Render(line)
}

func stateLabel(s gesture.Status) string {
	if s.State == gesture.StateAccumulating {
		return "ACCUMULATING"
	}
	return "IDLE"
}

func lastGestureLabel(s gesture.Status, now int64) string {
	if s.Fired == 0 {
		return "never"
	}
	ago := float64(now-s.LastGesture) / 1000
	if ago < 0 {
		ago = 0
	}
	return fmt.Sprintf("%.1fs ago", ago)
}

func renderPendingBar(pending, required, width int) string {
	ratio := 0.0
	if required > 0 {
		ratio = float64(pending) / float64(required)
	}
	ratio = math.Max(0, math.Min(1, ratio))
	filled := int(math.Round(ratio * float64(width)))

	filledPart := lipgloss.NewStyle().Foreground(ColorNear).Render(strings.Repeat("|", filled))
	emptyPart := lipgloss.NewStyle().Foreground(ColorDimGreen).Render(strings.Repeat("-", width-filled))
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

func renderSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}

	chars := []byte{'_', '.', '-', '~', '^'}

	minV, maxV := values[0], values[0]
	for _, v := range values {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}

	rng := maxV - minV
	if rng <= 0 {
		rng = 1
	}

	start := 0
	if len(values) > width {
		start = len(values) - width
	}

	var sb strings.Builder
	for i := start; i < len(values); i++ {
		idx := int((values[i] - minV) / rng * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))
		sb.WriteByte(chars[idx])
	}
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
