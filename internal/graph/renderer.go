// Package graph draws the recent reading history as a step line on a
// character grid.
package graph

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"proxigesture.klederson.com/internal/sensor"
)

var (
	colorBright = lipgloss.Color("#00FF41")
	colorMid    = lipgloss.Color("#008F11")
	colorDim    = lipgloss.Color("#004A0A")
	colorNear   = lipgloss.Color("#FFCC00")
	colorLine   = lipgloss.Color("#FF3300")

	styleFar       = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleNear      = lipgloss.NewStyle().Foreground(colorNear).Bold(true)
	styleConnector = lipgloss.NewStyle().Foreground(colorMid)
	styleThreshold = lipgloss.NewStyle().Foreground(colorLine)
	styleDot       = lipgloss.NewStyle().Foreground(colorDim)
	styleAxis      = lipgloss.NewStyle().Foreground(colorMid)
)

const (
	gutterWidth = 7
	markFar     = '*'
	markNear    = '#'
	markJoin    = '|'
	markLine    = '-'
)

// Frame describes what the plot covers.
type Frame struct {
	Now      int64 // newest instant, in the readings' time base
	Window   time.Duration
	MaxRange float64
	NearLine float64 // distance drawn as the threshold row
}

// Render produces the graph as a styled string of height lines of width
// cells. Readings must be ordered oldest first.
func Render(width, height int, readings []sensor.Reading, f Frame) string {
	plotW := width - gutterWidth
	if plotW < 5 || height < 3 || f.MaxRange <= 0 {
		return ""
	}

	cells := plotCells(plotW, height, readings, f)
	threshold := DistanceToRow(f.NearLine, f.MaxRange, height)

	var sb strings.Builder
	for row := 0; row < height; row++ {
		sb.WriteString(styleAxis.Render(gutterLabel(row, height, threshold, f)))
		for col := 0; col < plotW; col++ {
			sb.WriteString(renderCell(cells[row][col], row == threshold))
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// plotCells lays out the step line. Each column holds the most recent
// reading at or before the instant it covers.
func plotCells(plotW, height int, readings []sensor.Reading, f Frame) [][]rune {
	cells := make([][]rune, height)
	for i := range cells {
		cells[i] = make([]rune, plotW)
	}
	if len(readings) == 0 {
		return cells
	}

	windowMs := f.Window.Milliseconds()
	prevRow := -1
	for col := 0; col < plotW; col++ {
		at := ColumnTime(col, f.Now, windowMs, plotW)
		idx := sort.Search(len(readings), func(i int) bool { return readings[i].Timestamp > at }) - 1
		if idx < 0 {
			continue
		}
		r := readings[idx]
		row := DistanceToRow(r.Distance, f.MaxRange, height)

		if prevRow >= 0 && prevRow != row {
			lo, hi := prevRow, row
			if lo > hi {
				lo, hi = hi, lo
			}
			for j := lo + 1; j < hi; j++ {
				cells[j][col] = markJoin
			}
		}
		if r.IsNear {
			cells[row][col] = markNear
		} else {
			cells[row][col] = markFar
		}
		prevRow = row
	}
	return cells
}

func renderCell(ch rune, onThreshold bool) string {
	switch ch {
	case markNear:
		return styleNear.Render(string(ch))
	case markFar:
		return styleFar.Render(string(ch))
	case markJoin:
		return styleConnector.Render(string(ch))
	}
	if onThreshold {
		return styleThreshold.Render(string(markLine))
	}
	return styleDot.Render(" ")
}

func gutterLabel(row, height, threshold int, f Frame) string {
	switch row {
	case 0:
		return fmt.Sprintf("%5.1f |", f.MaxRange)
	case threshold:
		return fmt.Sprintf("%5.1f |", f.NearLine)
	case height - 1:
		return fmt.Sprintf("%5.1f |", 0.0)
	}
	return "      |"
}

// RenderLegend produces the legend line below the graph.
func RenderLegend(width int, window time.Duration) string {
	legend := styleFar.Render(string(markFar)+" far") +
		"  " +
		styleNear.Render(string(markNear)+" near") +
		"  " +
		styleThreshold.Render("--- threshold") +
		"  " +
		styleAxis.Render(fmt.Sprintf("last %s", window))

	pad := (width - lipgloss.Width(legend)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + legend
}
