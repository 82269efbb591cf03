package stats

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Sink receives telemetry.
type Sink interface {
	// Emit records one signal sample.
	Emit(source, signal string, at time.Time, value float64)

	// RecordScalar records a teardown scalar.
	RecordScalar(source, name string, value float64)
}

// Scalar is one recorded teardown value.
type Scalar struct {
	Source string
	Name   string
	Value  float64
}

// Sample is one signal value.
type Sample struct {
	At    time.Time
	Value float64
}

// MemorySink keeps everything in memory. It is safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	scalars []Scalar
	series  map[string]map[string][]Sample
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{series: make(map[string]map[string][]Sample)}
}

// Emit appends a sample.
func (m *MemorySink) Emit(source, signal string, at time.Time, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bySignal, ok := m.series[source]
	if !ok {
		bySignal = make(map[string][]Sample)
		m.series[source] = bySignal
	}
	bySignal[signal] = append(bySignal[signal], Sample{At: at, Value: value})
}

// RecordScalar appends a scalar.
func (m *MemorySink) RecordScalar(source, name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scalars = append(m.scalars, Scalar{Source: source, Name: name, Value: value})
}

// Scalars returns scalars in recording order.
func (m *MemorySink) Scalars() []Scalar {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Scalar(nil), m.scalars...)
}

// Scalar returns the last value recorded for source and name.
func (m *MemorySink) Scalar(source, name string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.scalars) - 1; i >= 0; i-- {
		if s := m.scalars[i]; s.Source == source && s.Name == name {
			return s.Value, true
		}
	}
	return 0, false
}

// Series returns the samples emitted by source for signal.
func (m *MemorySink) Series(source, signal string) []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sample(nil), m.series[source][signal]...)
}

// Sources returns every source that emitted or recorded, sorted.
func (m *MemorySink) Sources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	for src := range m.series {
		seen[src] = struct{}{}
	}
	for _, s := range m.scalars {
		seen[s.Source] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for src := range seen {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}

// SlogSink writes telemetry to an slog.Logger. Samples go to Debug and
// scalars to Info.
type SlogSink struct {
	Logger *slog.Logger
}

// Emit logs a sample.
func (s SlogSink) Emit(source, signal string, at time.Time, value float64) {
	if s.Logger == nil {
		return
	}
	s.Logger.Debug("signal", "source", source, "signal", signal, "at", at, "value", value)
}

// RecordScalar logs a scalar.
func (s SlogSink) RecordScalar(source, name string, value float64) {
	if s.Logger == nil {
		return
	}
	s.Logger.Info("scalar", "source", source, "name", name, "value", value)
}

// MultiSink fans telemetry out to several sinks.
type MultiSink []Sink

// Emit forwards the sample.
func (m MultiSink) Emit(source, signal string, at time.Time, value float64) {
	for _, s := range m {
		s.Emit(source, signal, at, value)
	}
}

// RecordScalar forwards the scalar.
func (m MultiSink) RecordScalar(source, name string, value float64) {
	for _, s := range m {
		s.RecordScalar(source, name, value)
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Sink = (*MemorySink)(nil)
	_ Sink = SlogSink{}
	_ Sink = MultiSink(nil)
)
