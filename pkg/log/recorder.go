package log

import (
	"time"

	"github.com/droneauth/droneauth-go/pkg/wire"
)

// Recorder stamps session, role and time onto events before passing them to
// a Logger. A nil *Recorder discards everything.
type Recorder struct {
	logger    Logger
	sessionID string
	role      Role
	now       func() time.Time
}

// NewRecorder creates a Recorder. If now is nil, time.Now is used.
func NewRecorder(logger Logger, sessionID string, role Role, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{logger: Or(logger), sessionID: sessionID, role: role, now: now}
}

// SessionID returns the session the recorder stamps on events.
func (r *Recorder) SessionID() string {
	if r == nil {
		return ""
	}
	return r.sessionID
}

func (r *Recorder) emit(e Event) {
	if r == nil {
		return
	}
	e.Timestamp = r.now()
	e.SessionID = r.sessionID
	e.LocalRole = r.role
	r.logger.Log(e)
}

// Frame records a raw datagram.
func (r *Recorder) Frame(dir Direction, remote string, data []byte) {
	r.emit(Event{
		Direction:  dir,
		Layer:      LayerTransport,
		Category:   CategoryMessage,
		RemoteAddr: remote,
		Frame:      NewFrameEvent(data),
	})
}

// Message records a decoded message.
func (r *Recorder) Message(dir Direction, remote, identity string, m wire.Message) {
	r.emit(Event{
		Direction:  dir,
		Layer:      LayerWire,
		Category:   CategoryMessage,
		RemoteAddr: remote,
		Identity:   identity,
		Message:    NewMessageEvent(m),
	})
}

// State records a state transition.
func (r *Recorder) State(identity, oldState, newState, reason string) {
	r.emit(Event{
		Direction: DirectionNone,
		Layer:     LayerSession,
		Category:  CategoryState,
		Identity:  identity,
		StateChange: &StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// Auth records an authentication outcome. A zero latency is omitted.
func (r *Recorder) Auth(identity, remote string, outcome Outcome, reason string, latency time.Duration) {
	ae := &AuthEvent{Outcome: outcome, Reason: reason}
	if latency > 0 {
		ae.Latency = &latency
	}
	r.emit(Event{
		Direction:  DirectionNone,
		Layer:      LayerSession,
		Category:   CategoryAuth,
		RemoteAddr: remote,
		Identity:   identity,
		Auth:       ae,
	})
}

// Error records an error at layer.
func (r *Recorder) Error(layer Layer, remote, identity string, err error, context string) {
	if err == nil {
		return
	}
	r.emit(Event{
		Direction:  DirectionNone,
		Layer:      layer,
		Category:   CategoryError,
		RemoteAddr: remote,
		Identity:   identity,
		Error: &ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	})
}
