// Package plot renders the per-file impedance bar charts.
//
// Each figure has one red bar per channel, the file base name and column as
// title, and the standard deviation, mean and below-threshold average drawn
// over the plot area. The y axis starts at zero and ends just above the
// larger of the tallest bar and the threshold, unless a fixed maximum is
// configured.
package plot
