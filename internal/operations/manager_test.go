package operations

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "impedancecli/internal/errors"
	"impedancecli/internal/infrastructure"
	"impedancecli/internal/shared/testutil"
)

type funcStep struct {
	BaseStep
	run func(ctx context.Context, state *RunState) error
}

func newFuncStep(id string, run func(ctx context.Context, state *RunState) error) *funcStep {
	return &funcStep{BaseStep: NewBaseStep(id, id), run: run}
}

func (s *funcStep) Execute(ctx context.Context, state *RunState) error {
	return s.run(ctx, state)
}

func ok(calls *[]string, id string) *funcStep {
	return newFuncStep(id, func(context.Context, *RunState) error {
		*calls = append(*calls, id)
		return nil
	})
}

func testProviders(t *testing.T) (*infrastructure.OTelProviders, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	cfg := &infrastructure.OTelConfig{
		ServiceName:    "impedance-report-test",
		ServiceVersion: "test",
		TraceExporter:  "none",
		SpanProcessors: []sdktrace.SpanProcessor{recorder},
	}
	logger, _ := testutil.NewTestLogger(t)
	providers, err := infrastructure.InitializeOTel(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { providers.Shutdown(context.Background()) })
	return providers, recorder
}

func TestManagerRunsStepsInOrder(t *testing.T) {
	var calls []string
	logger, _ := testutil.NewTestLogger(t)
	m := NewManager(nil, nil, logger)
	state := NewRunState("run-1", nil)

	err := m.Execute(context.Background(), state, []Step{ok(&calls, "a"), ok(&calls, "b"), ok(&calls, "c")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, calls)

	for _, s := range state.Steps() {
		assert.Equal(t, StepStatusCompleted, s.GetStatus(), s.ID)
	}
}

func TestManagerStopsAtFirstFailure(t *testing.T) {
	var calls []string
	logger, capture := testutil.NewTestLogger(t)
	m := NewManager(nil, nil, logger)
	state := NewRunState("run-1", nil)

	collision := apperrors.NewCollisionError("/out/textFileData/a.txt")
	failing := newFuncStep("b", func(context.Context, *RunState) error { return collision })

	err := m.Execute(context.Background(), state, []Step{ok(&calls, "a"), failing, ok(&calls, "c"), ok(&calls, "d")})
	require.Error(t, err)

	assert.Equal(t, []string{"a"}, calls)
	assert.Equal(t, "b", FailedStep(err))
	assert.Equal(t, ErrorTypeExecution, GetErrorType(err))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeCollision), "cause must stay inspectable")

	assert.Equal(t, StepStatusCompleted, state.GetStep("a").GetStatus())
	assert.Equal(t, StepStatusFailed, state.GetStep("b").GetStatus())
	assert.Equal(t, StepStatusSkipped, state.GetStep("c").GetStatus())
	assert.Equal(t, StepStatusSkipped, state.GetStep("d").GetStatus())
	assert.True(t, state.HasFailures())

	testutil.AssertLogContains(t, capture, slog.LevelInfo, "step_skipped")
	testutil.AssertLogContains(t, capture, slog.LevelError, "step_error")
}

func TestManagerStepTimeout(t *testing.T) {
	cfg := NewConfig()
	cfg.SetStepTimeout("slow", 10*time.Millisecond)
	m := NewManager(cfg, nil, nil)

	slow := newFuncStep("slow", func(ctx context.Context, _ *RunState) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := m.Execute(context.Background(), NewRunState("run-1", nil), []Step{slow})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeTimeout, GetErrorType(err))
	assert.Equal(t, "slow", FailedStep(err))
}

func TestManagerCancelled(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := NewRunState("run-1", nil)
	err := NewManager(nil, nil, nil).Execute(ctx, state, []Step{ok(&calls, "a"), ok(&calls, "b")})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeCancellation, GetErrorType(err))
	assert.Empty(t, calls)
	assert.Equal(t, StepStatusSkipped, state.GetStep("b").GetStatus())
}

func TestManagerRecordsSpans(t *testing.T) {
	providers, recorder := testProviders(t)
	m := NewManager(nil, NewOperationTracer(providers), nil)

	var calls []string
	failing := newFuncStep("b", func(context.Context, *RunState) error { return errors.New("boom") })
	_ = m.Execute(context.Background(), NewRunState("run-1", nil), []Step{ok(&calls, "a"), failing})

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "report.step.a", spans[0].Name())
	assert.Equal(t, "report.step.b", spans[1].Name())
	assert.Equal(t, "Error", spans[1].Status().Code.String())
}

func TestConfigTimeouts(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, DefaultStepTimeout, cfg.GetStepTimeout(StepIDLoad))
	assert.Equal(t, DefaultNotifyTimeout, cfg.GetStepTimeout(StepIDNotify))

	cfg.StepTimeout = time.Minute
	assert.Equal(t, time.Minute, cfg.GetStepTimeout(StepIDRender))
}

func TestWrapErrorKeepsExistingStep(t *testing.T) {
	inner := NewTimeoutError("compress", "1s", context.DeadlineExceeded)
	wrapped := WrapError(inner, "other")
	assert.Equal(t, "compress", wrapped.Step)
	assert.Nil(t, WrapError(nil, "x"))
	assert.Contains(t, NewExecutionError("load", errors.New("bad row")).Error(), "[execution] load: step execution failed: bad row")
}
