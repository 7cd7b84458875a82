package operations

import (
	"sync"
	"time"

	"impedancecli/internal/archive"
	"impedancecli/internal/config"
	"impedancecli/pkg/contracts/domain"
)

// OperationStatusValue represents the overall run status
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// RunState is the data shared by the steps of one run. Steps only append
// to it; nothing is read back from global state.
type RunState struct {
	mu sync.RWMutex

	ID        string
	Status    OperationStatusValue
	StartTime time.Time
	EndTime   *time.Time

	// Week is computed once at run start and never changes
	Week *config.WeekLayout

	// Inputs in discovery order; Table is set by the load step
	Inputs    []domain.MeasurementFile
	Summaries []*domain.ChannelSummary
	Figures   []string
	Exports   []string
	Archive   *archive.Result
	Staged    int
	Notified  string

	steps map[string]*StepState
	order []string

	Error error
}

// NewRunState creates the state of a run for the given week
func NewRunState(id string, week *config.WeekLayout) *RunState {
	return &RunState{
		ID:     id,
		Status: OperationStatusPending,
		Week:   week,
		steps:  make(map[string]*StepState),
	}
}

// Start marks the run as running
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = OperationStatusRunning
	r.StartTime = time.Now()
}

// Complete marks the run as completed
func (r *RunState) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = OperationStatusCompleted
}

// Fail marks the run as failed
func (r *RunState) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = OperationStatusFailed
	r.Error = err
}

// Cancel marks the run as cancelled
func (r *RunState) Cancel(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = OperationStatusCancelled
	r.Error = err
}

// AddStep registers a step state, keeping registration order
func (r *RunState) AddStep(state *StepState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.steps[state.ID]; !ok {
		r.order = append(r.order, state.ID)
	}
	r.steps[state.ID] = state
}

// GetStep returns the state of a specific step
func (r *RunState) GetStep(id string) *StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.steps[id]
}

// Steps returns the step states in registration order
func (r *RunState) Steps() []*StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*StepState, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.steps[id])
	}
	return out
}

// HasFailures returns true if any step has failed
func (r *RunState) HasFailures() bool {
	for _, s := range r.Steps() {
		if s.GetStatus() == StepStatusFailed {
			return true
		}
	}
	return false
}

// Duration returns the duration of the run
func (r *RunState) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.StartTime.IsZero() {
		return 0
	}
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}
