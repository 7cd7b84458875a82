package exporter

import (
	"fmt"
	"math"
	"strconv"
)

// formatFloat formats a value with 3 decimals, leaving NaN cells empty
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return fmt.Sprintf("%.3f", f)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// cellValue converts a float to a workbook cell, nil for NaN
func cellValue(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
