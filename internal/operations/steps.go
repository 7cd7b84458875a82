package operations

import (
	"context"
	"fmt"
	"log/slog"

	"impedancecli/internal/config"
	apperrors "impedancecli/internal/errors"
	"impedancecli/internal/plot"
	"impedancecli/pkg/contracts/domain"
)

// DiscoverStep lists the input files of the run
type DiscoverStep struct {
	BaseStep
	finder FileFinder
	paths  config.PathsConfig
	logger *slog.Logger
}

// NewDiscoverStep creates the discovery step
func NewDiscoverStep(finder FileFinder, paths config.PathsConfig, logger *slog.Logger) *DiscoverStep {
	return &DiscoverStep{
		BaseStep: NewBaseStep(StepIDDiscover, StepNameDiscover),
		finder:   finder,
		paths:    paths,
		logger:   logger,
	}
}

// Execute fills state.Inputs in name order
func (s *DiscoverStep) Execute(ctx context.Context, state *RunState) error {
	found, err := s.finder.FindByExtension(s.paths.InputDir, s.paths.Extension)
	if err != nil {
		return apperrors.NewStorageError("failed to list input files", err)
	}

	inputs := make([]domain.MeasurementFile, len(found))
	for i, f := range found {
		inputs[i] = domain.MeasurementFile{Path: f.Path, Name: f.Name, Size: f.Size, ModTime: f.ModTime}
	}
	state.Inputs = inputs

	s.logger.InfoContext(ctx, "input files discovered",
		slog.String("dir", s.paths.InputDir),
		slog.String("extension", s.paths.Extension),
		slog.Int("files", len(inputs)))
	state.GetStep(s.ID()).SetMetadata("files", len(inputs))
	return nil
}

// LoadStep parses every discovered file
type LoadStep struct {
	BaseStep
	checker FileChecker
	parser  TableParser
	logger  *slog.Logger
}

// NewLoadStep creates the load step
func NewLoadStep(checker FileChecker, parser TableParser, logger *slog.Logger) *LoadStep {
	return &LoadStep{
		BaseStep: NewBaseStep(StepIDLoad, StepNameLoad),
		checker:  checker,
		parser:   parser,
		logger:   logger,
	}
}

// Execute attaches a table to each input. The first unreadable file aborts
// the run.
func (s *LoadStep) Execute(ctx context.Context, state *RunState) error {
	for i := range state.Inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		in := &state.Inputs[i]
		if s.checker != nil {
			if err := s.checker.ValidateFile(in.Path); err != nil {
				return err
			}
		}
		table, err := s.parser.ParseFile(in.Path)
		if err != nil {
			return err
		}
		in.Table = table
		s.logger.DebugContext(ctx, "measurement file loaded",
			slog.String("file", in.Name),
			slog.Int("channels", table.ChannelCount()),
			slog.Int("columns", len(table.Columns)))
	}
	return nil
}

// RenderStep summarises and charts each loaded file
type RenderStep struct {
	BaseStep
	analyzer Summarizer
	renderer FigureWriter
	tracer   *OperationTracer
	logger   *slog.Logger
}

// NewRenderStep creates the render step
func NewRenderStep(analyzer Summarizer, renderer FigureWriter, tracer *OperationTracer, logger *slog.Logger) *RenderStep {
	return &RenderStep{
		BaseStep: NewBaseStep(StepIDRender, StepNameRender),
		analyzer: analyzer,
		renderer: renderer,
		tracer:   tracer,
		logger:   logger,
	}
}

// Execute creates the week folders and writes "<base> - fig <i>.png" for the
// file at discovery position i
func (s *RenderStep) Execute(ctx context.Context, state *RunState) error {
	if err := state.Week.EnsureDirectories(); err != nil {
		return apperrors.NewStorageError("failed to create week folder", err)
	}

	for i, in := range state.Inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary, err := s.analyzer.Summarize(ctx, in, i)
		if err != nil {
			return err
		}

		path := state.Week.FigurePath(plot.FigureName(in.BaseName(), i))
		if err := s.renderer.WriteFigure(path, plot.Title(in.BaseName(), summary.Column), summary); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write figure for %s", in.Name), err)
		}

		state.Summaries = append(state.Summaries, summary)
		state.Figures = append(state.Figures, path)
		s.tracer.RecordFigure(ctx)
		s.logger.InfoContext(ctx, "figure written",
			slog.String("file", in.Name),
			slog.String("figure", path),
			slog.String("mean", domain.FormatValue(summary.Mean)),
			slog.String("filtered_mean", summary.Filtered.String()))
	}

	s.tracer.RecordFiles(ctx, len(state.Inputs))
	return nil
}

// SummarizeStep writes the weekly summary tables
type SummarizeStep struct {
	BaseStep
	exporter SummaryWriter
}

// NewSummarizeStep creates the summary export step
func NewSummarizeStep(exporter SummaryWriter) *SummarizeStep {
	return &SummarizeStep{
		BaseStep: NewBaseStep(StepIDSummarize, StepNameSummarize),
		exporter: exporter,
	}
}

// Execute writes the summary files into the week folder
func (s *SummarizeStep) Execute(ctx context.Context, state *RunState) error {
	paths, err := s.exporter.Export(ctx, state.Week, state.Summaries)
	if err != nil {
		return err
	}
	state.Exports = paths
	return nil
}

// StageStep copies the inputs into the raw data folder
type StageStep struct {
	BaseStep
	archiver Archiver
}

// NewStageStep creates the staging step
func NewStageStep(archiver Archiver) *StageStep {
	return &StageStep{
		BaseStep: NewBaseStep(StepIDStage, StepNameStage),
		archiver: archiver,
	}
}

// Execute stages all inputs or none
func (s *StageStep) Execute(ctx context.Context, state *RunState) error {
	copied, err := s.archiver.Stage(ctx, state.Week, state.Inputs)
	if err != nil {
		return err
	}
	state.Staged = copied
	state.GetStep(s.ID()).SetMetadata("copied", copied)
	return nil
}

// CompressStep zips the week folder
type CompressStep struct {
	BaseStep
	archiver Archiver
	tracer   *OperationTracer
}

// NewCompressStep creates the compression step
func NewCompressStep(archiver Archiver, tracer *OperationTracer) *CompressStep {
	return &CompressStep{
		BaseStep: NewBaseStep(StepIDCompress, StepNameCompress),
		archiver: archiver,
		tracer:   tracer,
	}
}

// Execute writes "<week>.zip" next to the week folder
func (s *CompressStep) Execute(ctx context.Context, state *RunState) error {
	res, err := s.archiver.Compress(ctx, state.Week)
	if err != nil {
		return err
	}
	state.Archive = res
	s.tracer.RecordArchive(ctx, res.Bytes)
	state.GetStep(s.ID()).SetMetadata("members", len(res.Members))
	return nil
}

// FinalizeStep removes the archived originals
type FinalizeStep struct {
	BaseStep
	archiver Archiver
}

// NewFinalizeStep creates the finalize step
func NewFinalizeStep(archiver Archiver) *FinalizeStep {
	return &FinalizeStep{
		BaseStep: NewBaseStep(StepIDFinalize, StepNameFinalize),
		archiver: archiver,
	}
}

// Execute completes the move of the inputs
func (s *FinalizeStep) Execute(ctx context.Context, state *RunState) error {
	return s.archiver.Finalize(ctx, state.Week, state.Inputs)
}

// NotifyStep sends the weekly or the empty-week mail
type NotifyStep struct {
	BaseStep
	notifier Notifier
	mode     string
	tracer   *OperationTracer
	logger   *slog.Logger
}

// NewNotifyStep creates the weekly notification step
func NewNotifyStep(notifier Notifier, tracer *OperationTracer, logger *slog.Logger) *NotifyStep {
	return &NotifyStep{
		BaseStep: NewBaseStep(StepIDNotify, StepNameNotify),
		notifier: notifier,
		mode:     NotificationWeekly,
		tracer:   tracer,
		logger:   logger,
	}
}

// NewNotifyEmptyStep creates the empty-week notification step
func NewNotifyEmptyStep(notifier Notifier, tracer *OperationTracer, logger *slog.Logger) *NotifyStep {
	return &NotifyStep{
		BaseStep: NewBaseStep(StepIDNotifyEmpty, StepNameNotifyEmpty),
		notifier: notifier,
		mode:     NotificationEmpty,
		tracer:   tracer,
		logger:   logger,
	}
}

// Execute sends one mail. A nil notifier means mail is disabled.
func (s *NotifyStep) Execute(ctx context.Context, state *RunState) error {
	if s.notifier == nil {
		s.logger.WarnContext(ctx, "mail disabled, notification not sent",
			slog.String("mode", s.mode))
		state.GetStep(s.ID()).SetMetadata("disabled", true)
		return nil
	}

	var err error
	if s.mode == NotificationEmpty {
		err = s.notifier.SendEmpty(ctx)
	} else {
		err = s.notifier.SendWeekly(ctx, state.Week)
	}
	s.tracer.RecordNotification(ctx, s.mode, err)
	if err != nil {
		return err
	}
	state.Notified = s.mode
	return nil
}
