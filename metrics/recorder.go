// Package metrics records sync loop and wizard activity.
package metrics

import "time"

const (
	OUTCOME_SUCCESS     = "success"
	OUTCOME_FAILED      = "failed"
	OUTCOME_TIMEOUT     = "timeout"
	OUTCOME_CANCELLED   = "cancelled"
	OUTCOME_UNAVAILABLE = "unavailable"
	OUTCOME_REJECTED    = "rejected"
)

type Recorder interface {
	RunStarted()
	// RunFinished records a run outcome and the time spent from submission
	// to the final state read.
	RunFinished(outcome string, duration time.Duration)
	PollAttempt()
	StepCompleted(wizardType string, stepId string)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) RunStarted() {}

func (n *NoopRecorder) RunFinished(_ string, _ time.Duration) {}

func (n *NoopRecorder) PollAttempt() {}

func (n *NoopRecorder) StepCompleted(_, _ string) {}
