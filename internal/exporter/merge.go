package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"impedancecli/pkg/contracts/domain"
)

// summary sheet columns, see getHeaders
const (
	colFile = iota
	colFigure
	colColumn
	colCount
	colMean
	colStdDev
	colMin
	colMax
	colThreshold
	colFiltered
	colBelow
)

// summaryDataRow is the first data row of the summary sheet (zero-based)
const summaryDataRow = 3

// withEarlierRuns prepends the files recorded by an earlier run of the same
// week that this run does not summarize again. An unreadable workbook is
// logged and replaced.
func (e *SummaryExporter) withEarlierRuns(ctx context.Context, xlsxPath string, current []*domain.ChannelSummary) []*domain.ChannelSummary {
	earlier, err := loadWorkbook(xlsxPath)
	if err != nil {
		e.logger.WarnContext(ctx, "earlier weekly summary unreadable, replacing it",
			slog.String("xlsx", xlsxPath),
			slog.String("error", err.Error()))
		return current
	}
	if len(earlier) == 0 {
		return current
	}

	fresh := make(map[string]bool, len(current))
	for _, s := range current {
		fresh[s.File] = true
	}
	merged := make([]*domain.ChannelSummary, 0, len(earlier)+len(current))
	for _, s := range earlier {
		if !fresh[s.File] {
			merged = append(merged, s)
		}
	}
	kept := len(merged)
	merged = append(merged, current...)

	e.logger.InfoContext(ctx, "weekly summary extended",
		slog.Int("earlier_files", kept),
		slog.Int("new_files", len(current)))
	return merged
}

// loadWorkbook reads back the summaries of a workbook written by Export.
// A missing workbook yields no summaries.
func loadWorkbook(path string) ([]*domain.ChannelSummary, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(summarySheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	var (
		out    []*domain.ChannelSummary
		byFile = make(map[string]*domain.ChannelSummary)
	)
	for i := summaryDataRow; i < len(rows); i++ {
		if cell(rows[i], colFile) == "" {
			continue
		}
		s, err := summaryFromRow(rows[i])
		if err != nil {
			return nil, fmt.Errorf("summary row %d: %w", i+1, err)
		}
		out = append(out, s)
		byFile[s.File] = s
	}

	channels, err := f.GetRows(channelsSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(channels); i++ {
		s, ok := byFile[cell(channels[i], 0)]
		if !ok {
			continue
		}
		v, err := parseNumber(cell(channels[i], 2))
		if err != nil {
			return nil, fmt.Errorf("channel row %d: %w", i+1, err)
		}
		s.Channels = append(s.Channels, cell(channels[i], 1))
		s.Values = append(s.Values, v)
	}
	return out, nil
}

func summaryFromRow(row []string) (*domain.ChannelSummary, error) {
	s := &domain.ChannelSummary{
		File:   cell(row, colFile),
		Column: cell(row, colColumn),
	}

	var err error
	if s.Index, err = figureIndex(cell(row, colFigure)); err != nil {
		return nil, err
	}
	if s.Count, err = strconv.Atoi(cell(row, colCount)); err != nil {
		return nil, fmt.Errorf("channel count: %w", err)
	}
	if s.Filtered.Count, err = strconv.Atoi(cell(row, colBelow)); err != nil {
		return nil, fmt.Errorf("channels below threshold: %w", err)
	}

	for _, field := range []struct {
		col int
		dst *float64
	}{
		{colMean, &s.Mean},
		{colStdDev, &s.StdDev},
		{colMin, &s.Min},
		{colMax, &s.Max},
		{colThreshold, &s.Threshold},
	} {
		if *field.dst, err = parseNumber(cell(row, field.col)); err != nil {
			return nil, err
		}
	}

	if raw := cell(row, colFiltered); raw != "" {
		if s.Filtered.Mean, err = parseNumber(raw); err != nil {
			return nil, err
		}
		s.Filtered.Valid = true
	}
	return s, nil
}

// figureIndex recovers i from "<base> - fig <i>.png"
func figureIndex(figure string) (int, error) {
	at := strings.LastIndex(figure, " - fig ")
	if at < 0 || !strings.HasSuffix(figure, ".png") {
		return 0, fmt.Errorf("unexpected figure name %q", figure)
	}
	return strconv.Atoi(strings.TrimSuffix(figure[at+len(" - fig "):], ".png"))
}

// parseNumber reads a raw cell; an empty cell is an undefined statistic
func parseNumber(raw string) (float64, error) {
	if raw == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric cell %q: %w", raw, err)
	}
	return v, nil
}

func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
