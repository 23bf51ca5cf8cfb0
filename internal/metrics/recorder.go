// Package metrics exposes counters and gauges for the alarm engine. The
// Recorder interface lets components record without caring whether
// Prometheus is configured.
package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultSkipped ResultLabel = "skipped"
)

// FetchLabel enumerates time source lookup outcomes.
type FetchLabel string

const (
	FetchCacheHit FetchLabel = "cache_hit"
	FetchRemote   FetchLabel = "remote"
	FetchError    FetchLabel = "error"
)

// Recorder defines observability hooks for the engine. NoopRecorder is the
// default when metrics are not configured.
type Recorder interface {
	ObserveTick(d time.Duration)
	IncTickFault()
	IncEntered(prayer string)
	IncDispatch(sink string, result ResultLabel)
	IncFetch(result FetchLabel)
	SetNextRemaining(seconds float64)
	SetKeepAliveActive(active bool)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveTick(time.Duration)       {}
func (NoopRecorder) IncTickFault()                   {}
func (NoopRecorder) IncEntered(string)               {}
func (NoopRecorder) IncDispatch(string, ResultLabel) {}
func (NoopRecorder) IncFetch(FetchLabel)             {}
func (NoopRecorder) SetNextRemaining(float64)        {}
func (NoopRecorder) SetKeepAliveActive(bool)         {}
