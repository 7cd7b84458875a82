// Package dataprocessing turns nanoZ impedance exports into per-file
// statistics.
//
// # Architecture
//
// The package has two components:
//
// 1. Parser: reads a tab-delimited export, skipping the instrument header
// lines and the marker row, and drops the trailing phase column
// 2. Analyzer: computes mean, sample standard deviation and the average of
// channels below the impedance threshold
//
// # Usage
//
//	parser := dataprocessing.NewDefaultParser(logger)
//	table, err := parser.ParseFile("array A12.txt")
//	if err != nil {
//	    return err
//	}
//
//	analyzer := dataprocessing.NewAnalyzer(5, logger)
//	summary, err := analyzer.Summarize(ctx, domain.MeasurementFile{Name: "array A12.txt", Table: table}, 0)
//
// A file whose channels are all at or above the threshold yields a summary
// with Filtered.Valid == false.
package dataprocessing
