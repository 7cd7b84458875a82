package operations

import (
	"context"
	"log/slog"
	"time"

	"impedancecli/pkg/contracts/domain"
)

// StepReport is the outcome of one step
type StepReport struct {
	ID       string        `json:"id"`
	Status   StepStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// RunReport summarises a finished run
type RunReport struct {
	RunID        string                   `json:"run_id"`
	Week         string                   `json:"week"`
	Status       OperationStatusValue     `json:"status"`
	Empty        bool                     `json:"empty"`
	Files        int                      `json:"files"`
	Summaries    []*domain.ChannelSummary `json:"summaries,omitempty"`
	Figures      []string                 `json:"figures,omitempty"`
	Exports      []string                 `json:"exports,omitempty"`
	Archive      string                   `json:"archive,omitempty"`
	ArchiveBytes int64                    `json:"archive_bytes,omitempty"`
	Members      []string                 `json:"members,omitempty"`
	Staged       int                      `json:"staged"`
	Notification string                   `json:"notification,omitempty"`
	Steps        []StepReport             `json:"steps"`
	Duration     time.Duration            `json:"duration"`
	Error        string                   `json:"error,omitempty"`
}

// NewRunReport builds the report of a run state
func NewRunReport(state *RunState) *RunReport {
	r := &RunReport{
		RunID:        state.ID,
		Week:         state.Week.Name,
		Status:       state.Status,
		Files:        len(state.Inputs),
		Summaries:    state.Summaries,
		Figures:      state.Figures,
		Exports:      state.Exports,
		Staged:       state.Staged,
		Notification: state.Notified,
		Duration:     state.Duration(),
	}
	r.Empty = r.Files == 0 && state.GetStep(StepIDNotifyEmpty) != nil
	if state.Archive != nil {
		r.Archive = state.Archive.Path
		r.ArchiveBytes = state.Archive.Bytes
		r.Members = state.Archive.Members
	}
	if state.Error != nil {
		r.Error = state.Error.Error()
	}

	for _, s := range state.Steps() {
		sr := StepReport{
			ID:       s.ID,
			Status:   s.GetStatus(),
			Duration: s.Duration(),
			Message:  s.Message,
		}
		if s.Error != nil {
			sr.Error = s.Error.Error()
		}
		r.Steps = append(r.Steps, sr)
	}
	return r
}

// StatusOf returns the status of a step, or "" if it never ran
func (r *RunReport) StatusOf(id string) StepStatus {
	for _, s := range r.Steps {
		if s.ID == id {
			return s.Status
		}
	}
	return ""
}

// Log writes the report as one structured record
func (r *RunReport) Log(ctx context.Context, logger *slog.Logger) {
	steps := make([]any, 0, len(r.Steps))
	for _, s := range r.Steps {
		steps = append(steps, slog.String(s.ID, string(s.Status)))
	}

	level := slog.LevelInfo
	if r.Status != OperationStatusCompleted {
		level = slog.LevelError
	}
	logger.Log(ctx, level, "report run finished",
		slog.String("run_id", r.RunID),
		slog.String("week", r.Week),
		slog.String("status", string(r.Status)),
		slog.Int("files", r.Files),
		slog.Int("figures", len(r.Figures)),
		slog.String("archive", r.Archive),
		slog.Int64("archive_bytes", r.ArchiveBytes),
		slog.String("notification", r.Notification),
		slog.Duration("duration", r.Duration),
		slog.Group("steps", steps...),
		slog.String("error", r.Error))
}
