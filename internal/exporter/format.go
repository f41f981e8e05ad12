package exporter

import (
	"fmt"
	"strconv"
)

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	// Always format with exactly 2 decimal places for consistency
	// This ensures values like 13.4 appear as 13.40 in CSV
	return fmt.Sprintf("%.2f", f)
}

// formatInt formats an int value for CSV output
func formatInt(n int) string {
	return strconv.Itoa(n)
}

// formatOptionalFloat formats a float64 that may have no observations behind
// it. An empty cell distinguishes "no data" from a genuine zero.
func formatOptionalFloat(f float64, hasData bool) string {
	if !hasData {
		return ""
	}
	return formatFloat(f)
}
