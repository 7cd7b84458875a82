package domain

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
)

// MeasurementTable is one parsed instrument file. Rows are channels, columns
// are measurement series in source order with the phase column removed.
type MeasurementTable struct {
	IndexName     string      `json:"index_name"`
	Columns       []string    `json:"columns"`
	Channels      []string    `json:"channels"`
	Values        [][]float64 `json:"values"` // Values[channel][column]
	DroppedColumn string      `json:"dropped_column,omitempty"`
}

// Column returns the values of column i across all channels.
func (t *MeasurementTable) Column(i int) []float64 {
	if i < 0 || i >= len(t.Columns) {
		return nil
	}
	out := make([]float64, len(t.Values))
	for row, values := range t.Values {
		out[row] = values[i]
	}
	return out
}

// ColumnByName returns the values of the named column.
func (t *MeasurementTable) ColumnByName(name string) ([]float64, bool) {
	for i, c := range t.Columns {
		if c == name {
			return t.Column(i), true
		}
	}
	return nil, false
}

// ChannelCount returns the number of rows in the table.
func (t *MeasurementTable) ChannelCount() int {
	return len(t.Channels)
}

// MeasurementFile pairs a discovered input file with its parsed table.
// Table is nil until the file has been loaded.
type MeasurementFile struct {
	Path    string            `json:"path"`
	Name    string            `json:"name"`
	Size    int64             `json:"size"`
	ModTime time.Time         `json:"mod_time"`
	Table   *MeasurementTable `json:"table,omitempty"`
}

// BaseName is the file name without its extension, used in figure names
// and chart titles.
func (f MeasurementFile) BaseName() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// FilteredAverage is the mean over channels below the threshold. Valid is
// false when no channel qualified.
type FilteredAverage struct {
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
	Valid bool    `json:"valid"`
}

// String formats the average for annotations and reports.
func (f FilteredAverage) String() string {
	if !f.Valid {
		return "n/a"
	}
	return FormatValue(f.Mean)
}

// ChannelSummary holds the statistics of the charted column of one file.
type ChannelSummary struct {
	File      string          `json:"file"`
	Index     int             `json:"index"`
	Column    string          `json:"column"`
	Channels  []string        `json:"channels"`
	Values    []float64       `json:"values"`
	Count     int             `json:"count"`
	Mean      float64         `json:"mean"`
	StdDev    float64         `json:"std_dev"`
	Min       float64         `json:"min"`
	Max       float64         `json:"max"`
	Threshold float64         `json:"threshold"`
	Filtered  FilteredAverage `json:"filtered"`
}

// FormatValue renders a statistic with three decimals, or "n/a" when it is
// undefined.
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}
