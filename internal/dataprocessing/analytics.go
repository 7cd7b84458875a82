package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apperrors "impedancecli/internal/errors"
	"impedancecli/pkg/contracts/domain"
)

// Analyzer computes the per-file statistics of the impedance column.
type Analyzer struct {
	threshold float64
	logger    *slog.Logger
}

// NewAnalyzer creates an analyzer using threshold (MOhm) for the filtered average.
func NewAnalyzer(threshold float64, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{threshold: threshold, logger: logger}
}

// Summarize computes statistics for the first measurement column of file.
// An empty filter set is reported through Filtered.Valid, not as an error.
func (a *Analyzer) Summarize(ctx context.Context, file domain.MeasurementFile, index int) (*domain.ChannelSummary, error) {
	if file.Table == nil || len(file.Table.Columns) == 0 {
		return nil, fmt.Errorf("file %s has no measurement columns loaded", file.Name)
	}

	values := file.Table.Column(0)
	if len(values) == 0 {
		return nil, fmt.Errorf("file %s has no channels", file.Name)
	}
	summary := &domain.ChannelSummary{
		File:      file.Name,
		Index:     index,
		Column:    file.Table.Columns[0],
		Channels:  append([]string(nil), file.Table.Channels...),
		Values:    values,
		Count:     len(values),
		Mean:      Mean(values),
		StdDev:    SampleStdDev(values),
		Min:       floats.Min(values),
		Max:       floats.Max(values),
		Threshold: a.threshold,
	}

	filtered, n, err := FilteredMean(values, a.threshold)
	switch {
	case errors.Is(err, apperrors.ErrNoValuesBelowThreshold):
		a.logger.WarnContext(ctx, "no channels below threshold",
			slog.String("file", file.Name),
			slog.Float64("threshold", a.threshold),
			slog.Int("channels", len(values)))
	case err != nil:
		return nil, err
	default:
		summary.Filtered = domain.FilteredAverage{Mean: filtered, Count: n, Valid: true}
	}

	return summary, nil
}

// Mean returns the arithmetic mean, NaN for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// SampleStdDev returns the n-1 standard deviation. It is undefined (NaN)
// for fewer than two values.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	return stat.StdDev(values, nil)
}

// FilteredMean averages the values strictly below threshold and returns how
// many qualified. It returns ErrNoValuesBelowThreshold when none did.
func FilteredMean(values []float64, threshold float64) (float64, int, error) {
	below := make([]float64, 0, len(values))
	for _, v := range values {
		if v < threshold {
			below = append(below, v)
		}
	}
	if len(below) == 0 {
		return 0, 0, apperrors.ErrNoValuesBelowThreshold
	}
	return stat.Mean(below, nil), len(below), nil
}
