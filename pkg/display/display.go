// Package display publishes human-readable authentication state indicators.
// Observers are presentation only and never influence protocol decisions.
package display

import (
	"fmt"
	"log/slog"
	"sync"
)

// Color is an indicator color.
type Color string

// Indicator colors.
const (
	ColorGray  Color = "gray"
	ColorGreen Color = "green"
	ColorRed   Color = "red"
)

// Indicator is the visual state of one drone.
type Indicator struct {
	Color  Color
	Label  string
	Bubble string
}

// String renders the indicator for terminals.
func (i Indicator) String() string {
	return fmt.Sprintf("[%s] %s", i.Color, i.Label)
}

// Standard indicators.
var (
	Idle          = Indicator{Color: ColorGray, Label: "Idle"}
	Authenticated = Indicator{Color: ColorGreen, Label: "Authenticated", Bubble: "AUTHENTICATED!"}
	Failed        = Indicator{Color: ColorRed, Label: "Auth Failed", Bubble: "AUTH FAILED!"}
	TimedOut      = Indicator{Color: ColorRed, Label: "Timeout", Bubble: "TIMEOUT!"}
)

// Observer receives indicator updates for a source.
type Observer interface {
	Update(source string, ind Indicator)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(source string, ind Indicator)

// Update calls f.
func (f ObserverFunc) Update(source string, ind Indicator) { f(source, ind) }

// Observers fans updates out to several observers.
type Observers []Observer

// Update forwards to each observer.
func (o Observers) Update(source string, ind Indicator) {
	for _, obs := range o {
		if obs != nil {
			obs.Update(source, ind)
		}
	}
}

// Board keeps the latest indicator per source and the full history.
// It is safe for concurrent use.
type Board struct {
	mu      sync.Mutex
	current map[string]Indicator
	history []Change
}

// Change is one recorded update.
type Change struct {
	Source    string
	Indicator Indicator
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{current: make(map[string]Indicator)}
}

// Update records ind for source.
func (b *Board) Update(source string, ind Indicator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current[source] = ind
	b.history = append(b.history, Change{Source: source, Indicator: ind})
}

// Get returns the current indicator for source, or Idle.
func (b *Board) Get(source string) Indicator {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ind, ok := b.current[source]; ok {
		return ind
	}
	return Idle
}

// History returns every update in order.
func (b *Board) History() []Change {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Change(nil), b.history...)
}

// SlogObserver logs updates at Info.
type SlogObserver struct {
	Logger *slog.Logger
}

// Update logs the indicator.
func (s SlogObserver) Update(source string, ind Indicator) {
	if s.Logger == nil {
		return
	}
	s.Logger.Info("display", "source", source, "color", string(ind.Color), "label", ind.Label)
}

// Compile-time interface satisfaction checks.
var (
	_ Observer = (*Board)(nil)
	_ Observer = SlogObserver{}
	_ Observer = Observers(nil)
	_ Observer = ObserverFunc(nil)
)
