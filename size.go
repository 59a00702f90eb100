package stashbox

import "fmt"

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize renders a byte count with one decimal place, e.g. "1.5 KB".
// Units step by 1024 up to GB; anything larger is rendered in TB.
func FormatSize(n int64) string {
	value := float64(max(n, 0))
	for _, unit := range sizeUnits {
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f TB", value)
}
