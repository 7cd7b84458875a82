// Package exporter writes the weekly summary tables into the week folder.
//
// CSVWriter is the low level writer with an optional UTF-8 BOM for Excel.
// SummaryExporter turns the per-file channel summaries into
// impedance_summary.csv and an impedance_summary.xlsx workbook with one
// summary sheet and one sheet of per-channel values.
package exporter
