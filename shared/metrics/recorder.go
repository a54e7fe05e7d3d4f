package metrics

import "time"

// Outcome labels a finished post load.
type Outcome string

const (
	OutcomeReady             Outcome = "ready"
	OutcomeInvalidIdentifier Outcome = "invalid_identifier"
	OutcomeNotFound          Outcome = "not_found"
	OutcomeServerError       Outcome = "server_error"
	OutcomeDiscarded         Outcome = "discarded"
)

// Recorder receives observability hooks from the post pipeline. Implementations may
// forward to Prometheus or drop everything.
type Recorder interface {
	ObserveFetchDuration(d time.Duration, success bool)
	IncLoadOutcome(outcome Outcome)
	ObserveHTTPRequest(route string, status int, d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveFetchDuration(time.Duration, bool)       {}
func (NoopRecorder) IncLoadOutcome(Outcome)                         {}
func (NoopRecorder) ObserveHTTPRequest(string, int, time.Duration) {}
