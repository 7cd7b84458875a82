package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Manager executes steps strictly in order. The first failure stops the
// run and marks every remaining step as skipped.
type Manager struct {
	config *Config
	tracer *OperationTracer
	logger *slog.Logger
}

// NewManager creates a new operation manager
func NewManager(config *Config, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if config == nil {
		config = NewConfig()
	}
	if tracer == nil {
		tracer = NewOperationTracer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{config: config, tracer: tracer, logger: logger}
}

// Tracer returns the tracer steps use for business metrics
func (m *Manager) Tracer() *OperationTracer {
	return m.tracer
}

// Execute runs steps one by one against state
func (m *Manager) Execute(ctx context.Context, state *RunState, steps []Step) error {
	for _, step := range steps {
		state.AddStep(NewStepState(step.ID(), step.Name()))
	}

	m.logger.InfoContext(ctx, "sequential_execution_start",
		slog.String("operation_id", state.ID),
		slog.Int("step_count", len(steps)))

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			m.logger.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			m.skipRemaining(state, steps[i:], "operation cancelled")
			return NewCancellationError(step.ID(), err)
		}

		m.logger.InfoContext(ctx, "executing_step",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := m.executeStep(ctx, state, step); err != nil {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("previous step %s failed", step.ID()))
			return err
		}
	}

	m.logger.InfoContext(ctx, "all_steps_completed",
		slog.String("operation_id", state.ID))
	return nil
}

// executeStep runs one step under its own span and timeout
func (m *Manager) executeStep(ctx context.Context, state *RunState, step Step) error {
	stepState := state.GetStep(step.ID())
	if stepState == nil {
		return NewFatalError("step state not found", nil)
	}

	timeout := m.config.GetStepTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stepCtx, span := m.tracer.TraceStep(stepCtx, state.ID, step.ID())

	stepState.Start()
	startTime := time.Now()
	err := step.Execute(stepCtx, state)
	duration := time.Since(startTime)

	if err == nil {
		m.tracer.RecordStep(stepCtx, span, step.ID(), duration, nil)
		stepState.Complete()
		m.logger.InfoContext(ctx, "step_complete",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", duration))
		return nil
	}

	var opErr *OperationError
	switch {
	case errors.Is(err, context.DeadlineExceeded) && errors.Is(stepCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		opErr = NewTimeoutError(step.ID(), timeout.String(), err)
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		opErr = NewCancellationError(step.ID(), err)
	default:
		opErr = WrapError(err, step.ID())
	}

	m.tracer.RecordStep(stepCtx, span, step.ID(), duration, opErr)
	stepState.Fail(opErr)
	m.logger.ErrorContext(ctx, "step_error",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()),
		slog.Duration("duration", duration),
		slog.String("error", err.Error()))
	return opErr
}

// skipRemaining marks every pending step as skipped
func (m *Manager) skipRemaining(state *RunState, steps []Step, reason string) {
	for _, step := range steps {
		s := state.GetStep(step.ID())
		if s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
			m.logger.Info("step_skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("reason", reason))
		}
	}
}
