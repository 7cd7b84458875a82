package operations

import (
	"time"
)

// Config represents the operation execution configuration
type Config struct {
	// Default timeout applied to every step
	StepTimeout time.Duration `json:"step_timeout"`

	// Step-specific timeouts
	StepTimeouts map[string]time.Duration `json:"step_timeouts"`
}

// NewConfig returns the default operation configuration
func NewConfig() *Config {
	return &Config{
		StepTimeout: DefaultStepTimeout,
		StepTimeouts: map[string]time.Duration{
			StepIDNotify:      DefaultNotifyTimeout,
			StepIDNotifyEmpty: DefaultNotifyTimeout,
		},
	}
}

// GetStepTimeout returns the timeout for a specific step
func (c *Config) GetStepTimeout(stepID string) time.Duration {
	if timeout, ok := c.StepTimeouts[stepID]; ok && timeout > 0 {
		return timeout
	}
	if c.StepTimeout > 0 {
		return c.StepTimeout
	}
	return DefaultStepTimeout
}

// SetStepTimeout sets the timeout for a specific step
func (c *Config) SetStepTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}
