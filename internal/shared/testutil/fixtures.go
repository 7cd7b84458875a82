package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Physical layout of an instrument export
const (
	ImpedanceHeader = "Impedance (MOhms)"
	PhaseHeader     = "Phase (deg)"
	markerLine      = 20
)

// MeasurementContent renders impedance values in the export layout: two
// instrument lines, the column header, one row per channel and the marker
// row at physical line 20 when the channel list reaches it.
func MeasurementContent(values []float64) string {
	var b strings.Builder
	b.WriteString("nanoZ impedance test\n")
	b.WriteString("Frequency: 1004 Hz\tCycles: 30\n")
	b.WriteString("Channel\t" + ImpedanceHeader + "\t" + PhaseHeader + "\n")

	line := 3
	for i, v := range values {
		if line == markerLine {
			b.WriteString("--- second headstage ---\n")
			line++
		}
		fmt.Fprintf(&b, "%d\t%s\t-%d.5\n", i+1, strconv.FormatFloat(v, 'f', -1, 64), 40+i)
		line++
	}
	return b.String()
}

// WriteMeasurementFile writes a fixture file into dir and returns its path
func WriteMeasurementFile(t *testing.T, dir, name string, values []float64) string {
	t.Helper()
	return WriteFile(t, dir, name, MeasurementContent(values))
}

// WriteFile writes raw content into dir and returns the path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}
