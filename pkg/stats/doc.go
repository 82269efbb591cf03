// Package stats collects authentication telemetry.
//
// Each role keeps Counters. Every change is emitted as a signal sample
// (authRequest, authSuccess, authFailure) carrying the running count, and at
// teardown the role records its scalars under role-specific names. Sinks
// are observers only; nothing in this package feeds back into protocol
// decisions.
package stats
