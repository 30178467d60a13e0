// Package render formats polled UPS variables as the upslist status table.
package render

import (
	"fmt"
	"math"
	"strings"
)

// MinGaugeWidth is the narrowest gauge: two brackets around two cells.
const MinGaugeWidth = len("[##]")

// Gauge draws value as a bar of the given total width, brackets included.
// Filled cells round up and blank cells round down, so any non-zero value
// shows at least one '#'. A nil value draws all '-'. Values are clamped to
// [0, max]; widths below MinGaugeWidth are raised to it.
func Gauge(value *float64, width int, max float64) string {
	if width < MinGaugeWidth {
		width = MinGaugeWidth
	}
	inner := width - len("[]")
	if value == nil || max <= 0 {
		return "[" + strings.Repeat("-", inner) + "]"
	}
	v := math.Min(math.Max(*value, 0), max)
	filled := int(math.Ceil(float64(inner) * v / max))
	if filled > inner {
		filled = inner
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", inner-filled) + "]"
}

// HMS formats seconds as "1h 05m", or "05m" below one hour. Seconds are
// dropped.
func HMS(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := seconds % 3600 / 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, m)
	}
	return fmt.Sprintf("%02dm", m)
}

// RoundRuntime rounds runtimes above one hour to the nearest ten minutes,
// halves to even. Shorter runtimes are returned unchanged.
func RoundRuntime(seconds float64) float64 {
	if seconds > 3600 {
		return math.RoundToEven(seconds/600) * 600
	}
	return seconds
}

// StatusLabel turns ups.status flags into the short label shown in the
// STATUS column. Plain "OL" reads "online" and plain "OB" reads
// "*on battery*"; anything else lists the flags without OL.
func StatusLabel(status string) string {
	switch status = strings.TrimSpace(status); status {
	case "OL":
		return "online"
	case "OB":
		return "*on battery*"
	case "":
		return "unknown"
	}
	flags := strings.Fields(status)
	kept := flags[:0]
	for _, f := range flags {
		if f != "OL" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}
