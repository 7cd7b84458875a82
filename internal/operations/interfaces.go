package operations

import (
	"context"

	"impedancecli/internal/archive"
	"impedancecli/internal/config"
	"impedancecli/internal/files"
	"impedancecli/pkg/contracts/domain"
)

// FileFinder lists candidate input files
type FileFinder interface {
	FindByExtension(dir, ext string) ([]files.FileInfo, error)
}

// FileChecker verifies an input file is readable before parsing
type FileChecker interface {
	ValidateFile(path string) error
}

// TableParser reads one instrument export
type TableParser interface {
	ParseFile(path string) (*domain.MeasurementTable, error)
}

// Summarizer computes the statistics of one loaded file
type Summarizer interface {
	Summarize(ctx context.Context, file domain.MeasurementFile, index int) (*domain.ChannelSummary, error)
}

// FigureWriter renders one summary to a PNG file
type FigureWriter interface {
	WriteFigure(path, title string, s *domain.ChannelSummary) error
}

// SummaryWriter writes the week's summary tables
type SummaryWriter interface {
	Export(ctx context.Context, week *config.WeekLayout, summaries []*domain.ChannelSummary) ([]string, error)
}

// Archiver moves the inputs into the week folder and compresses it
type Archiver interface {
	Stage(ctx context.Context, week *config.WeekLayout, inputs []domain.MeasurementFile) (int, error)
	Compress(ctx context.Context, week *config.WeekLayout) (*archive.Result, error)
	Finalize(ctx context.Context, week *config.WeekLayout, inputs []domain.MeasurementFile) error
}

// Notifier sends the end-of-run mail
type Notifier interface {
	SendWeekly(ctx context.Context, week *config.WeekLayout) error
	SendEmpty(ctx context.Context) error
}

// Dependencies are the components a pipeline drives
type Dependencies struct {
	Finder   FileFinder
	Checker  FileChecker
	Parser   TableParser
	Analyzer Summarizer
	Renderer FigureWriter
	Exporter SummaryWriter
	Archiver Archiver
	Notifier Notifier
}
