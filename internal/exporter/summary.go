package exporter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"impedancecli/internal/config"
	apperrors "impedancecli/internal/errors"
	"impedancecli/internal/plot"
	"impedancecli/pkg/contracts/domain"
)

const (
	summarySheet  = "Summary"
	channelsSheet = "Channels"
)

// SummaryExporter writes the week's per-file statistics
type SummaryExporter struct {
	csv    *CSVWriter
	logger *slog.Logger
}

// NewSummaryExporter creates a summary exporter
func NewSummaryExporter(logger *slog.Logger) *SummaryExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryExporter{csv: NewCSVWriter(logger), logger: logger}
}

// Export writes the CSV and XLSX summaries into the week folder and returns
// their paths. Files summarized by an earlier run of the same week stay
// listed unless this run summarizes them again.
func (e *SummaryExporter) Export(ctx context.Context, week *config.WeekLayout, summaries []*domain.ChannelSummary) ([]string, error) {
	xlsxPath := filepath.Join(week.Dir, config.SummaryXLSXName)
	summaries = e.withEarlierRuns(ctx, xlsxPath, summaries)

	csvPath := filepath.Join(week.Dir, config.SummaryCSVName)
	if err := e.csv.WriteSimpleCSV(csvPath, e.getHeaders(), e.rows(summaries)); err != nil {
		return nil, apperrors.NewStorageError("failed to write summary CSV", err)
	}

	if err := e.writeWorkbook(xlsxPath, week, summaries); err != nil {
		return nil, apperrors.NewStorageError("failed to write summary workbook", err)
	}

	e.logger.InfoContext(ctx, "weekly summary exported",
		slog.String("csv", csvPath),
		slog.String("xlsx", xlsxPath),
		slog.Int("files", len(summaries)))
	return []string{csvPath, xlsxPath}, nil
}

func (e *SummaryExporter) getHeaders() []string {
	return []string{
		"File", "Figure", "Column", "Channels",
		"Mean", "StdDev", "Min", "Max",
		"Threshold", "FilteredMean", "ChannelsBelowThreshold",
	}
}

func (e *SummaryExporter) rows(summaries []*domain.ChannelSummary) [][]string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		filtered := ""
		if s.Filtered.Valid {
			filtered = formatFloat(s.Filtered.Mean)
		}
		rows = append(rows, []string{
			s.File,
			figureName(s),
			s.Column,
			formatInt(s.Count),
			formatFloat(s.Mean),
			formatFloat(s.StdDev),
			formatFloat(s.Min),
			formatFloat(s.Max),
			formatFloat(s.Threshold),
			filtered,
			formatInt(s.Filtered.Count),
		})
	}
	return rows
}

func (e *SummaryExporter) writeWorkbook(path string, week *config.WeekLayout, summaries []*domain.ChannelSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(channelsSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetCellValue(summarySheet, "A1", "Week"); err != nil {
		return err
	}
	if err := f.SetCellValue(summarySheet, "B1", week.Name); err != nil {
		return err
	}

	headers := e.getHeaders()
	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(summarySheet, "A3", &headerRow); err != nil {
		return err
	}
	if err := styleRow(f, summarySheet, 3, len(headers), bold); err != nil {
		return err
	}

	for i, s := range summaries {
		var filtered interface{}
		if s.Filtered.Valid {
			filtered = s.Filtered.Mean
		}
		row := []interface{}{
			s.File, figureName(s), s.Column, s.Count,
			cellValue(s.Mean), cellValue(s.StdDev), cellValue(s.Min), cellValue(s.Max),
			s.Threshold, filtered, s.Filtered.Count,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	channelHeader := []interface{}{"File", "Channel", "Impedance (MOhms)", "BelowThreshold"}
	if err := f.SetSheetRow(channelsSheet, "A1", &channelHeader); err != nil {
		return err
	}
	if err := styleRow(f, channelsSheet, 1, len(channelHeader), bold); err != nil {
		return err
	}

	line := 2
	for _, s := range summaries {
		for j, v := range s.Values {
			row := []interface{}{s.File, s.Channels[j], v, v < s.Threshold}
			cell, err := excelize.CoordinatesToCellName(1, line)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(channelsSheet, cell, &row); err != nil {
				return err
			}
			line++
		}
	}

	tmp := filepath.Join(filepath.Dir(path), ".tmp-"+filepath.Base(path))
	if err := f.SaveAs(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}

func figureName(s *domain.ChannelSummary) string {
	return plot.FigureName(strings.TrimSuffix(s.File, filepath.Ext(s.File)), s.Index)
}
