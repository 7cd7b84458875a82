package dataprocessing

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "impedancecli/internal/errors"
	"impedancecli/internal/shared/testutil"
	"impedancecli/pkg/contracts/domain"
)

func fileWithValues(name string, values []float64) domain.MeasurementFile {
	channels := make([]string, len(values))
	rows := make([][]float64, len(values))
	for i, v := range values {
		channels[i] = string(rune('A' + i))
		rows[i] = []float64{v, v * 100}
	}
	return domain.MeasurementFile{
		Name: name,
		Table: &domain.MeasurementTable{
			IndexName: "Channel",
			Columns:   []string{"Impedance", "Voltage"},
			Channels:  channels,
			Values:    rows,
		},
	}
}

func TestSummarize(t *testing.T) {
	analyzer := NewAnalyzer(5, nil)

	summary, err := analyzer.Summarize(context.Background(), fileWithValues("a.txt", []float64{1, 2, 3, 4, 10}), 3)
	require.NoError(t, err)

	assert.Equal(t, "a.txt", summary.File)
	assert.Equal(t, 3, summary.Index)
	assert.Equal(t, "Impedance", summary.Column)
	assert.Equal(t, 5, summary.Count)
	assert.InDelta(t, 4.0, summary.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(12.5), summary.StdDev, 1e-12)
	assert.Equal(t, 1.0, summary.Min)
	assert.Equal(t, 10.0, summary.Max)
	assert.Equal(t, 5.0, summary.Threshold)
	assert.True(t, summary.Filtered.Valid)
	assert.InDelta(t, 2.5, summary.Filtered.Mean, 1e-12)
	assert.Equal(t, 4, summary.Filtered.Count)
}

func TestFilteredMeanEqualsMeanWhenAllBelow(t *testing.T) {
	values := []float64{0.5, 1.25, 4.99, 3}
	filtered, n, err := FilteredMean(values, 5)
	require.NoError(t, err)
	assert.Equal(t, len(values), n)
	assert.InDelta(t, Mean(values), filtered, 1e-12)
}

func TestFilteredMeanThresholdIsStrict(t *testing.T) {
	filtered, n, err := FilteredMean([]float64{5, 5, 1}, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, filtered)
}

func TestFilteredMeanEmptySet(t *testing.T) {
	_, n, err := FilteredMean([]float64{5, 6, 100}, 5)
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, errors.Is(err, apperrors.ErrNoValuesBelowThreshold))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeEmptyFilter))
}

func TestSummarizeWithNothingBelowThreshold(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)
	analyzer := NewAnalyzer(5, logger)

	summary, err := analyzer.Summarize(context.Background(), fileWithValues("high.txt", []float64{7, 8, 9}), 0)
	require.NoError(t, err)

	assert.False(t, summary.Filtered.Valid)
	assert.Equal(t, "n/a", summary.Filtered.String())
	assert.InDelta(t, 8.0, summary.Mean, 1e-12)

	rec, ok := capture.Find("no channels below threshold")
	require.True(t, ok)
	assert.Equal(t, slog.LevelWarn, rec.Level)
	assert.Equal(t, "high.txt", rec.Attrs["file"])
}

func TestSingleChannelStdDevUndefined(t *testing.T) {
	summary, err := NewAnalyzer(5, nil).Summarize(context.Background(), fileWithValues("one.txt", []float64{2}), 0)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(summary.StdDev))
	assert.Equal(t, 2.0, summary.Mean)
	assert.True(t, math.IsNaN(Mean(nil)))
}

func TestSummarizeRequiresTable(t *testing.T) {
	_, err := NewAnalyzer(5, nil).Summarize(context.Background(), domain.MeasurementFile{Name: "x.txt"}, 0)
	require.Error(t, err)

	empty := domain.MeasurementFile{Name: "e.txt", Table: &domain.MeasurementTable{Columns: []string{"Z"}}}
	_, err = NewAnalyzer(5, nil).Summarize(context.Background(), empty, 0)
	require.Error(t, err)
}
