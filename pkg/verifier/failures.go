package verifier

import (
	"time"
)

// FailureTracker counts consecutive verification failures per identity.
// A success resets the count. The counts are observational and never
// change how a request is answered.
type FailureTracker struct {
	records map[string]failureRecord
}

type failureRecord struct {
	consecutive int
	total       int
	last        time.Time
}

// NewFailureTracker creates an empty tracker.
func NewFailureTracker() *FailureTracker {
	return &FailureTracker{records: make(map[string]failureRecord)}
}

// RecordFailure counts one failure for identity at t.
func (f *FailureTracker) RecordFailure(identity string, t time.Time) {
	r := f.records[identity]
	r.consecutive++
	r.total++
	r.last = t
	f.records[identity] = r
}

// Reset clears the consecutive count for identity. Call after a success.
func (f *FailureTracker) Reset(identity string) {
	r, ok := f.records[identity]
	if !ok {
		return
	}
	r.consecutive = 0
	f.records[identity] = r
}

// Consecutive returns the consecutive failure count.
func (f *FailureTracker) Consecutive(identity string) int {
	return f.records[identity].consecutive
}

// Total returns every failure recorded for identity.
func (f *FailureTracker) Total(identity string) int {
	return f.records[identity].total
}

// LastFailure returns when identity last failed.
func (f *FailureTracker) LastFailure(identity string) (time.Time, bool) {
	r, ok := f.records[identity]
	if !ok || r.total == 0 {
		return time.Time{}, false
	}
	return r.last, true
}
