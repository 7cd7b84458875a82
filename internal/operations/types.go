package operations

import (
	"time"
)

// Step identifiers
const (
	StepIDDiscover    = "discover"
	StepIDLoad        = "load"
	StepIDRender      = "render"
	StepIDSummarize   = "summarize"
	StepIDStage       = "stage"
	StepIDCompress    = "compress"
	StepIDFinalize    = "finalize"
	StepIDNotify      = "notify"
	StepIDNotifyEmpty = "notify_empty"
)

// Step names
const (
	StepNameDiscover    = "Input Discovery"
	StepNameLoad        = "Measurement Loading"
	StepNameRender      = "Figure Rendering"
	StepNameSummarize   = "Summary Export"
	StepNameStage       = "Raw Data Staging"
	StepNameCompress    = "Week Archive"
	StepNameFinalize    = "Input Removal"
	StepNameNotify      = "Weekly Notification"
	StepNameNotifyEmpty = "Empty Week Notification"
)

// Default timeouts
const (
	DefaultStepTimeout   = 5 * time.Minute
	DefaultNotifyTimeout = 2 * time.Minute
)

// Notification modes recorded on metrics and reports
const (
	NotificationWeekly = "weekly"
	NotificationEmpty  = "empty"
)
