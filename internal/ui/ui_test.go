package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"proxigesture.klederson.com/internal/gesture"
	"proxigesture.klederson.com/internal/monitor"
	"proxigesture.klederson.com/internal/sensor"
)

func TestRenderMenuBar(t *testing.T) {
	bar := RenderMenuBar(100, "iio:proximity", true)
	assert.Contains(t, bar, "[S]tart")
	assert.Contains(t, bar, "[P]ause")
	assert.Contains(t, bar, "[C]lear")
	assert.Contains(t, bar, "[Q]uit")
	assert.Contains(t, bar, "MONITORING")
	assert.Contains(t, bar, "Sensor: iio:proximity")
	assert.Equal(t, 100, lipgloss.Width(bar))

	paused := RenderMenuBar(100, "", false)
	assert.Contains(t, paused, "PAUSED")
	assert.Contains(t, paused, "Sensor: none")
}

func TestRenderStatusBar(t *testing.T) {
	st := monitor.Status{
		Running:   true,
		Modality:  sensor.ModalityLight,
		MaxRange:  5,
		Samples:   12,
		Malformed: 1,
		Dropped:   2,
		Gestures:  4,
	}
	bar := RenderStatusBar(120, st, 10, "")
	assert.Contains(t, bar, "[MONITORING]")
	assert.Contains(t, bar, "Modality: light")
	assert.Contains(t, bar, "Dropped: 3")
	assert.Contains(t, bar, "Range: 0-5.0")

	assert.Contains(t, RenderStatusBar(120, monitor.Status{}, 0, "NO SENSOR"), "[NO SENSOR]")
	assert.Contains(t, RenderStatusBar(120, monitor.Status{}, 0, ""), "[PAUSED]")
}

func TestRenderDetectorPanel(t *testing.T) {
	st := monitor.Status{
		Modality: sensor.ModalityProximity,
		Provider: "demo-proximity",
		MaxRange: 8,
		Detector: gesture.Status{
			State:       gesture.StateAccumulating,
			Pending:     2,
			Required:    3,
			Fired:       1,
			LastGesture: 1000,
		},
	}
	panel := RenderDetectorPanel(st, 3500, []float64{6, 1, 6}, 40, 30)
	assert.Contains(t, panel, "ACCUMULATING")
	assert.Contains(t, panel, "2.5s ago")
	assert.Contains(t, panel, "2/3")
	assert.Contains(t, panel, "demo-proximity")
	assert.Contains(t, panel, "^_^")
	assert.Equal(t, 30, lipgloss.Height(panel))

	idle := RenderDetectorPanel(monitor.Status{}, 0, nil, 40, 30)
	assert.Contains(t, idle, "IDLE")
	assert.Contains(t, idle, "never")
}

func TestRenderDetectorPanel_ClipsToHeight(t *testing.T) {
	panel := RenderDetectorPanel(monitor.Status{}, 0, []float64{1, 2}, 40, 8)
	assert.Equal(t, 8, lipgloss.Height(panel))
}

func TestRenderGestureBanner(t *testing.T) {
	assert.Empty(t, RenderGestureBanner(80, 0, 1))
	banner := RenderGestureBanner(80, 1, 7)
	assert.Contains(t, banner, "GESTURE DETECTED #7")
	assert.Equal(t, 80, lipgloss.Width(banner))
}

func TestRenderSparkline(t *testing.T) {
	assert.Equal(t, "", renderSparkline(nil, 10))
	assert.Equal(t, "_~^", renderSparkline([]float64{0, 3, 4}, 10))
	assert.Equal(t, "__", renderSparkline([]float64{2, 2}, 10), "flat input")
	assert.Equal(t, "^^", renderSparkline([]float64{0, 4, 4}, 2), "keeps the newest values")
}

func TestRenderPendingBar(t *testing.T) {
	bar := renderPendingBar(1, 2, 10)
	assert.Equal(t, "[|||||-----]", bar)
	assert.Equal(t, "[----------]", renderPendingBar(0, 0, 10))
	assert.Equal(t, 1, strings.Count(renderPendingBar(5, 3, 4), "["))
}
