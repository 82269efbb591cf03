package stats

import (
	"time"
)

// Signal names emitted on every counter change.
const (
	SignalRequest = "authRequest"
	SignalSuccess = "authSuccess"
	SignalFailure = "authFailure"
)

// Names are the scalar names a role records at teardown.
type Names struct {
	Requests    string
	Successes   string
	Failures    string
	SuccessRate string
}

// Scalar names used by drones and stations.
var (
	DroneNames = Names{
		Requests:    "authRequests",
		Successes:   "authSuccess",
		Failures:    "authFailures",
		SuccessRate: "successRate",
	}
	StationNames = Names{
		Requests:    "totalAuthRequests",
		Successes:   "totalAuthSuccess",
		Failures:    "totalAuthFailures",
		SuccessRate: "successRate",
	}
)

// Counters tracks requests, successes and failures.
type Counters struct {
	Requests  uint64
	Successes uint64
	Failures  uint64
}

// SuccessRate returns successes per request as a percentage. ok is false
// when there were no requests.
func (c Counters) SuccessRate() (rate float64, ok bool) {
	if c.Requests == 0 {
		return 0, false
	}
	return float64(c.Successes) / float64(c.Requests) * 100.0, true
}

// Record writes the teardown scalars to sink. The success rate is recorded
// only when there was at least one request.
func (c Counters) Record(sink Sink, source string, names Names) {
	if sink == nil {
		return
	}
	sink.RecordScalar(source, names.Requests, float64(c.Requests))
	sink.RecordScalar(source, names.Successes, float64(c.Successes))
	sink.RecordScalar(source, names.Failures, float64(c.Failures))
	if rate, ok := c.SuccessRate(); ok {
		sink.RecordScalar(source, names.SuccessRate, rate)
	}
}

// Recorder updates Counters and emits a signal for every change.
// The zero value with a nil Sink only counts.
type Recorder struct {
	Source string
	Sink   Sink
	Clock  func() time.Time

	counters Counters
}

// NewRecorder creates a recorder for source.
func NewRecorder(source string, sink Sink, clock func() time.Time) *Recorder {
	return &Recorder{Source: source, Sink: sink, Clock: clock}
}

// Request counts one request.
func (r *Recorder) Request() {
	r.counters.Requests++
	r.emit(SignalRequest, r.counters.Requests)
}

// Success counts one success.
func (r *Recorder) Success() {
	r.counters.Successes++
	r.emit(SignalSuccess, r.counters.Successes)
}

// Failure counts one failure.
func (r *Recorder) Failure() {
	r.counters.Failures++
	r.emit(SignalFailure, r.counters.Failures)
}

// Counters returns the current counts.
func (r *Recorder) Counters() Counters {
	return r.counters
}

// Finish records the teardown scalars under names.
func (r *Recorder) Finish(names Names) {
	r.counters.Record(r.Sink, r.Source, names)
}

func (r *Recorder) emit(signal string, value uint64) {
	if r.Sink == nil {
		return
	}
	now := time.Now
	if r.Clock != nil {
		now = r.Clock
	}
	r.Sink.Emit(r.Source, signal, now(), float64(value))
}
