package metrics

import "time"

// Outcome enumerates run results for counters.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Recorder defines observability hooks for generator runs.
type Recorder interface {
	ObserveRunDuration(mode string, d time.Duration)
	IncRunOutcome(mode string, outcome Outcome)
	ObserveStageDuration(stage string, d time.Duration)
	SetDocumentEntries(document string, n int)
	AddChanges(change string, n int)
	SetDumpBytes(n int64)
	SetLastSuccess(mode string, t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRunDuration(string, time.Duration)   {}
func (NoopRecorder) IncRunOutcome(string, Outcome)              {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) SetDocumentEntries(string, int)             {}
func (NoopRecorder) AddChanges(string, int)                     {}
func (NoopRecorder) SetDumpBytes(int64)                         {}
func (NoopRecorder) SetLastSuccess(string, time.Time)           {}
