package graph

import "math"

// TimeToColumn maps a timestamp to a plot column. The newest instant (now)
// is the rightmost column and now-window the leftmost. It returns -1 for
// timestamps older than the window.
func TimeToColumn(ts, now, windowMs int64, width int) int {
	if width <= 0 || windowMs <= 0 {
		return -1
	}
	age := now - ts
	if age < 0 {
		age = 0
	}
	if age > windowMs {
		return -1
	}
	col := width - 1 - int(math.Round(float64(age)/float64(windowMs)*float64(width-1)))
	if col < 0 {
		col = 0
	}
	return col
}

// ColumnTime is the inverse of TimeToColumn: the timestamp a column covers.
func ColumnTime(col int, now, windowMs int64, width int) int64 {
	if width <= 1 {
		return now
	}
	age := float64(width-1-col) / float64(width-1) * float64(windowMs)
	return now - int64(math.Round(age))
}

// DistanceToRow maps a distance to a plot row, 0 being the top. Distances
// beyond maxRange clamp to the top row.
func DistanceToRow(distance, maxRange float64, height int) int {
	if height <= 1 || maxRange <= 0 {
		return height - 1
	}
	if distance > maxRange {
		distance = maxRange
	}
	if distance < 0 {
		distance = 0
	}
	return height - 1 - int(math.Round(distance/maxRange*float64(height-1)))
}
