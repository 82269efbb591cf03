package log

import (
	"time"

	"github.com/droneauth/droneauth-go/pkg/wire"
)

// Event is one protocol log record.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies one drone session or one station instance (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// LocalRole indicates whether this is a drone or a ground station.
	LocalRole Role `cbor:"6,keyasint"`

	// RemoteAddr is the peer address (host:port).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Identity is the drone identity involved, if known.
	Identity string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Auth        *AuthEvent        `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming datagram.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing datagram.
	DirectionOut Direction = 1
	// DirectionNone marks events that are not tied to a datagram.
	DirectionNone Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionNone:
		return "-"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the datagram layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the message encoding layer.
	LayerWire Layer = 1
	// LayerSession is the authentication state machine layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryAuth indicates an authentication outcome.
	CategoryAuth Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryAuth:
		return "AUTH"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role indicates the local endpoint's role.
type Role uint8

const (
	// RoleDrone is the proving side.
	RoleDrone Role = 0
	// RoleStation is the verifying side.
	RoleStation Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleDrone:
		return "DRONE"
	case RoleStation:
		return "STATION"
	default:
		return "UNKNOWN"
	}
}

// MaxFrameCapture is the number of frame bytes stored in a FrameEvent.
const MaxFrameCapture = 256

// FrameEvent captures raw datagram bytes at the transport layer.
type FrameEvent struct {
	// Size is the datagram size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw datagram (truncated to MaxFrameCapture bytes).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// NewFrameEvent captures data, truncating it if needed.
func NewFrameEvent(data []byte) *FrameEvent {
	fe := &FrameEvent{Size: len(data)}
	n := len(data)
	if n > MaxFrameCapture {
		n = MaxFrameCapture
		fe.Truncated = true
	}
	fe.Data = append([]byte(nil), data[:n]...)
	return fe
}

// MessageEvent captures a decoded protocol message.
type MessageEvent struct {
	// Tag is the message type tag.
	Tag wire.Tag `cbor:"1,keyasint"`

	// Challenge is set for CHALLENGE and PROOF messages.
	Challenge string `cbor:"2,keyasint,omitempty"`

	// CommitmentSize is the commitment length for AUTH_REQUEST and PROOF.
	CommitmentSize int `cbor:"3,keyasint,omitempty"`

	// DigestSize is the digest length for PROOF.
	DigestSize int `cbor:"4,keyasint,omitempty"`

	// ProofTimestamp is the claimed proof time for PROOF (ns since epoch).
	ProofTimestamp uint64 `cbor:"5,keyasint,omitempty"`
}

// NewMessageEvent summarizes m. Secrets and digests are not recorded.
func NewMessageEvent(m wire.Message) *MessageEvent {
	me := &MessageEvent{Tag: m.Tag()}
	switch msg := m.(type) {
	case *wire.AuthRequest:
		me.CommitmentSize = len(msg.Commitment)
	case *wire.Challenge:
		me.Challenge = msg.Challenge
	case *wire.Proof:
		me.Challenge = msg.Challenge
		me.CommitmentSize = len(msg.Commitment)
		me.DigestSize = len(msg.Digest)
		me.ProofTimestamp = msg.Timestamp
	}
	return me
}

// StateChangeEvent captures a state machine transition.
type StateChangeEvent struct {
	// OldState is the previous state.
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// AuthEvent captures the outcome of one authentication attempt.
type AuthEvent struct {
	// Outcome of the attempt.
	Outcome Outcome `cbor:"1,keyasint"`

	// Reason explains a failure.
	Reason string `cbor:"2,keyasint,omitempty"`

	// Latency from AUTH_REQUEST to outcome, when measured.
	Latency *time.Duration `cbor:"3,keyasint,omitempty"`
}

// Outcome is the result of an authentication attempt.
type Outcome uint8

const (
	// OutcomeSuccess indicates the proof was accepted.
	OutcomeSuccess Outcome = 0
	// OutcomeFailure indicates the proof or request was rejected.
	OutcomeFailure Outcome = 1
	// OutcomeTimeout indicates no result arrived in time.
	OutcomeTimeout Outcome = 2
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeFailure:
		return "FAILURE"
	case OutcomeTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
