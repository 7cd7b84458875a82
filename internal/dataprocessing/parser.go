package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"impedancecli/internal/config"
	apperrors "impedancecli/internal/errors"
	"impedancecli/pkg/contracts/domain"
)

// minHeaderFields is the index column, one measurement column and the
// trailing phase column.
const minHeaderFields = 3

// Parser reads nanoZ tab-delimited measurement exports.
type Parser struct {
	skip   map[int]bool
	logger *slog.Logger
}

// NewParser creates a parser that ignores the given zero-based physical lines.
func NewParser(skipLines []int, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	skip := make(map[int]bool, len(skipLines))
	for _, l := range skipLines {
		skip[l] = true
	}
	return &Parser{skip: skip, logger: logger}
}

// NewDefaultParser uses the instrument's standard header and marker lines.
func NewDefaultParser(logger *slog.Logger) *Parser {
	return NewParser(config.DefaultSkipLines, logger)
}

// ParseFile reads one measurement file into a table without its phase column.
func (p *Parser) ParseFile(filePath string) (*domain.MeasurementTable, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, apperrors.NewParseError(filePath, 0, "failed to open measurement file", err)
	}
	defer f.Close()

	table, err := p.Parse(filePath, f)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("measurement file parsed",
		slog.String("file", filePath),
		slog.Int("channels", table.ChannelCount()),
		slog.Any("columns", table.Columns),
		slog.String("dropped_column", table.DroppedColumn))

	return table, nil
}

// Parse reads a measurement table from r. name is only used in errors.
func (p *Parser) Parse(name string, r io.Reader) (*domain.MeasurementTable, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	// nanoZ exports are unquoted; a stray quote must not join physical lines
	// and shift the skipped line numbers.
	reader.LazyQuotes = false
	reader.ReuseRecord = true

	var (
		header []string
		table  *domain.MeasurementTable
		seen   = make(map[string]int)
	)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			line := 0
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, apperrors.NewParseError(name, line, "malformed record", err)
		}

		line, _ := reader.FieldPos(0)
		if p.skip[line-1] || isBlank(record) {
			continue
		}

		if header == nil {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
			header = append([]string(nil), trimTrailingEmpty(record, 0)...)
			if len(header) < minHeaderFields {
				return nil, apperrors.NewParseError(name, line,
					fmt.Sprintf("expected a tab-delimited header with at least %d columns, got %d", minHeaderFields, len(header)), nil)
			}
			table = newTable(header)
			continue
		}

		record = trimTrailingEmpty(record, len(header))
		if len(record) != len(header) {
			return nil, apperrors.NewParseError(name, line,
				fmt.Sprintf("row has %d fields, header has %d", len(record), len(header)), nil)
		}

		channel := strings.TrimSpace(record[0])
		if first, dup := seen[channel]; dup {
			return nil, apperrors.NewParseError(name, line,
				fmt.Sprintf("duplicate channel %q (first seen on line %d)", channel, first), nil)
		}
		seen[channel] = line

		values := make([]float64, len(table.Columns))
		for i := range table.Columns {
			raw := strings.TrimSpace(record[i+1])
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, apperrors.NewParseError(name, line,
					fmt.Sprintf("non-numeric value %q in column %q", raw, table.Columns[i]), err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, apperrors.NewParseError(name, line,
					fmt.Sprintf("non-finite value %q in column %q", raw, table.Columns[i]), nil)
			}
			values[i] = v
		}

		table.Channels = append(table.Channels, channel)
		table.Values = append(table.Values, values)
	}

	if header == nil {
		return nil, apperrors.NewParseError(name, 0, "no header row found", nil)
	}
	if len(table.Channels) == 0 {
		return nil, apperrors.NewParseError(name, 0, "no data rows", nil)
	}

	return table, nil
}

// newTable keeps every measurement column except the last (phase) one.
func newTable(header []string) *domain.MeasurementTable {
	columns := make([]string, 0, len(header)-2)
	for _, h := range header[1 : len(header)-1] {
		columns = append(columns, strings.TrimSpace(h))
	}
	return &domain.MeasurementTable{
		IndexName:     strings.TrimSpace(header[0]),
		Columns:       columns,
		DroppedColumn: strings.TrimSpace(header[len(header)-1]),
	}
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// trimTrailingEmpty drops empty fields left by trailing tabs, never going
// below floor fields.
func trimTrailingEmpty(record []string, floor int) []string {
	n := len(record)
	for n > floor && strings.TrimSpace(record[n-1]) == "" {
		n--
	}
	return record[:n]
}
