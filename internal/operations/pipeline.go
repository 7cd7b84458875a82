package operations

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"impedancecli/internal/config"
	"impedancecli/internal/infrastructure"
)

// Pipeline is the weekly report run: discover, then either the empty-week
// mail or load, render, summarize, stage, compress, finalize and notify.
type Pipeline struct {
	deps    Dependencies
	paths   config.PathsConfig
	manager *Manager
	clock   func() time.Time
	logger  *slog.Logger
}

// NewPipeline creates a pipeline. A nil clock means time.Now.
func NewPipeline(deps Dependencies, paths config.PathsConfig, manager *Manager, clock func() time.Time, logger *slog.Logger) *Pipeline {
	if manager == nil {
		manager = NewManager(nil, nil, logger)
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{deps: deps, paths: paths, manager: manager, clock: clock, logger: logger}
}

// Run executes one batch and returns its report. The report is returned
// even when the run fails.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	runID := infrastructure.RunID(ctx)

	week, err := config.NewWeekLayout(p.paths.OutputDir, p.clock())
	if err != nil {
		return nil, NewFatalError("failed to compute week layout", err)
	}

	tracer := p.manager.Tracer()
	ctx, span := tracer.TraceRun(ctx, runID, week.Name)
	defer span.End()

	state := NewRunState(runID, week)
	state.Start()
	p.logger.InfoContext(ctx, "report run started",
		slog.String("week", week.Name),
		slog.String("input_dir", p.paths.InputDir),
		slog.String("output_dir", week.OutputRoot))

	err = p.manager.Execute(ctx, state, []Step{NewDiscoverStep(p.deps.Finder, p.paths, p.logger)})
	if err == nil {
		if len(state.Inputs) == 0 {
			p.logger.InfoContext(ctx, "no measurement files found, sending empty-week notice")
			err = p.manager.Execute(ctx, state, p.emptySteps(tracer))
		} else {
			err = p.manager.Execute(ctx, state, p.weeklySteps(tracer))
		}
	}

	if err != nil {
		p.recordFailure(ctx, state, err)
		tracer.RecordRunError(ctx, span, err)
		report := NewRunReport(state)
		report.Log(ctx, p.logger)
		return report, err
	}

	state.Complete()
	report := NewRunReport(state)
	report.Log(ctx, p.logger)
	return report, nil
}

func (p *Pipeline) emptySteps(tracer *OperationTracer) []Step {
	return []Step{NewNotifyEmptyStep(p.deps.Notifier, tracer, p.logger)}
}

func (p *Pipeline) weeklySteps(tracer *OperationTracer) []Step {
	return []Step{
		NewLoadStep(p.deps.Checker, p.deps.Parser, p.logger),
		NewRenderStep(p.deps.Analyzer, p.deps.Renderer, tracer, p.logger),
		NewSummarizeStep(p.deps.Exporter),
		NewStageStep(p.deps.Archiver),
		NewCompressStep(p.deps.Archiver, tracer),
		NewFinalizeStep(p.deps.Archiver),
		NewNotifyStep(p.deps.Notifier, tracer, p.logger),
	}
}

func (p *Pipeline) recordFailure(ctx context.Context, state *RunState, err error) {
	if GetErrorType(err) == ErrorTypeCancellation || errors.Is(err, context.Canceled) {
		state.Cancel(err)
	} else {
		state.Fail(err)
	}

	if FailedStep(err) == StepIDNotify {
		archivePath := ""
		if state.Archive != nil {
			archivePath = state.Archive.Path
		}
		p.logger.ErrorContext(ctx, "data archived but notification not delivered",
			slog.String("week", state.Week.Name),
			slog.String("archive", archivePath),
			slog.String("error", err.Error()))
	}
}
