package graph

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxigesture.klederson.com/internal/sensor"
)

func TestTimeToColumn(t *testing.T) {
	tests := []struct {
		name string
		ts   int64
		want int
	}{
		{"now is rightmost", 10000, 9},
		{"window start is leftmost", 1000, 0},
		{"middle", 4000, 3},
		{"older than window", 999, -1},
		{"future clamps to now", 12000, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeToColumn(tt.ts, 10000, 9000, 10))
		})
	}
	assert.Equal(t, -1, TimeToColumn(0, 0, 0, 10))
}

func TestColumnTimeInvertsTimeToColumn(t *testing.T) {
	for col := 0; col < 10; col++ {
		ts := ColumnTime(col, 10000, 9000, 10)
		assert.Equal(t, col, TimeToColumn(ts, 10000, 9000, 10))
	}
	assert.Equal(t, int64(42), ColumnTime(0, 42, 1000, 1))
}

func TestDistanceToRow(t *testing.T) {
	assert.Equal(t, 9, DistanceToRow(0, 8, 10))
	assert.Equal(t, 0, DistanceToRow(8, 8, 10))
	assert.Equal(t, 0, DistanceToRow(20, 8, 10), "clamps above range")
	assert.Equal(t, 9, DistanceToRow(-1, 8, 10), "clamps below zero")
	assert.Equal(t, 5, DistanceToRow(3.5, 8, 10))
	assert.Equal(t, 9, DistanceToRow(3, 0, 10))
}

func plain(s string) []string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = l[gutterWidth:]
	}
	return lines
}

func TestRender_TooSmall(t *testing.T) {
	f := Frame{Now: 0, Window: time.Second, MaxRange: 8, NearLine: 3}
	assert.Empty(t, Render(10, 10, nil, f))
	assert.Empty(t, Render(40, 2, nil, f))
	assert.Empty(t, Render(40, 10, nil, Frame{Window: time.Second}))
}

func TestRender_EmptyShowsThreshold(t *testing.T) {
	f := Frame{Now: 1000, Window: time.Second, MaxRange: 8, NearLine: 4}
	out := Render(gutterWidth+10, 9, nil, f)
	require.NotEmpty(t, out)

	lines := plain(out)
	require.Len(t, lines, 9)
	assert.Equal(t, strings.Repeat("-", 10), lines[4])
	assert.Equal(t, strings.Repeat(" ", 10), lines[0])
	for _, l := range strings.Split(out, "\n") {
		assert.Equal(t, gutterWidth+10, lipgloss.Width(l))
	}
}

func TestRender_StepLine(t *testing.T) {
	f := Frame{Now: 900, Window: 900 * time.Millisecond, MaxRange: 8, NearLine: 4}
	readings := []sensor.Reading{
		{Timestamp: 0, Distance: 8},
		{Timestamp: 500, Distance: 0, IsNear: true},
	}
	lines := plain(Render(gutterWidth+10, 9, readings, f))

	// Columns cover 0,100..900 ms. The far value holds until 500 ms.
	assert.Equal(t, "*****     ", lines[0])
	assert.Equal(t, "     #####", lines[8])
	assert.Equal(t, "     |    ", lines[1], "transition is joined")
	assert.Equal(t, "-----|----", lines[4], "join hides the threshold")
}

func TestRender_IgnoresReadingsAfterNow(t *testing.T) {
	f := Frame{Now: 900, Window: 900 * time.Millisecond, MaxRange: 8, NearLine: 4}
	readings := []sensor.Reading{{Timestamp: 1000, Distance: 8}}
	lines := plain(Render(gutterWidth+10, 9, readings, f))
	assert.Equal(t, strings.Repeat(" ", 10), lines[0])
}

func TestRenderLegend(t *testing.T) {
	legend := RenderLegend(80, 10*time.Second)
	assert.Contains(t, legend, "near")
	assert.Contains(t, legend, "last 10s")
	assert.LessOrEqual(t, lipgloss.Width(legend), 80)
}

func TestFlash(t *testing.T) {
	base := time.Unix(100, 0)
	f := NewFlash(time.Second)
	assert.False(t, f.Active(base), "idle until triggered")

	f.Trigger(base)
	assert.Equal(t, 1.0, f.Intensity(base))
	assert.InDelta(t, 0.75, f.Intensity(base.Add(250*time.Millisecond)), 1e-9)
	assert.True(t, f.Active(base.Add(999*time.Millisecond)))
	assert.False(t, f.Active(base.Add(time.Second)))
	assert.Equal(t, 0.0, f.Intensity(base.Add(-time.Millisecond)))
}
