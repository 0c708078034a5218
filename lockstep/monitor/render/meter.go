package render

import (
	"fmt"
	"strings"
)

// Meter draws a fixed-width fill bar such as "[#####.....]". A marker at
// position mark (as a fraction of max) is drawn with '|' when it lands on an
// empty cell.
func Meter(value, maxValue, width int, mark float64) string {
	if width < 1 {
		return ""
	}
	filled := 0
	if maxValue > 0 {
		filled = min(max(value*width/maxValue, 0), width)
	}

	cells := []byte(strings.Repeat("#", filled) + strings.Repeat(".", width-filled))
	if mark > 0 && mark < 1 {
		at := int(mark * float64(width))
		if at < width && cells[at] == '.' {
			cells[at] = '|'
		}
	}
	return "[" + string(cells) + "]"
}

// Ratio formats a resample ratio as a signed deviation from unity in
// percent, e.g. "+0.113%".
func Ratio(r float64) string {
	return fmt.Sprintf("%+.3f%%", (r-1)*100)
}

// Truncate shortens s to width runes, marking the cut with "...".
func Truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width > 3 {
		return string(runes[:width-3]) + "..."
	}
	if width > 0 {
		return string(runes[:width])
	}
	return ""
}
