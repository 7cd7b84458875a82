package config

import "time"

// Application constants for the weekly impedance report
const (
	// Application Info
	AppName     = "Impedance Report"
	AppVersion  = "1.0.0"
	ServiceName = "impedance-report"

	// EnvPrefix namespaces every environment variable (IMPEDANCE_*)
	EnvPrefix = "IMPEDANCE"

	// Input
	DefaultExtension     = ".txt"
	DefaultThresholdMOhm = 5.0

	// Output layout inside the output root
	DefaultOutputDir = "processedData"
	FiguresDirName   = "figures"
	RawDataDirName   = "textFileData"
	ArchiveExt       = ".zip"
	SummaryCSVName   = "impedance_summary.csv"
	SummaryXLSXName  = "impedance_summary.xlsx"
	WeekFolderLayout = "%s to %s"
	ISODate          = "2006-01-02"

	// Logs
	DefaultLogsDir = "logs"
	DefaultLogFile = "impedance-report.log"

	// Chart
	DefaultChartWidth  = 1024
	DefaultChartHeight = 600
	DefaultBarWidth    = 24

	// Mail
	DefaultSMTPHost        = "smtp.gmail.com"
	DefaultSMTPPort        = 587
	DefaultMailTimeout     = 30 * time.Second
	DefaultCredentialsFile = "credentials.sealed"

	// Operations
	DefaultStepTimeout = 5 * time.Minute

	// File permissions
	DirPermissions  = 0755
	FilePermissions = 0644
)

// DefaultSkipLines are the two instrument header lines and the marker row
// that precedes the second block of channels.
var DefaultSkipLines = []int{0, 1, 20}
