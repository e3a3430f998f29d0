package exporter

import (
	"strconv"
)

// formatFloat formats a derived value with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatPrice keeps a source price exactly as read
func formatPrice(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatOptional renders nil as an empty cell
func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}
