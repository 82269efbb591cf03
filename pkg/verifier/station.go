package verifier

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/droneauth/droneauth-go/pkg/commitment"
	plog "github.com/droneauth/droneauth-go/pkg/log"
	"github.com/droneauth/droneauth-go/pkg/stats"
	"github.com/droneauth/droneauth-go/pkg/timer"
	"github.com/droneauth/droneauth-go/pkg/transport"
	"github.com/droneauth/droneauth-go/pkg/wire"
)

// DefaultSource names the station in telemetry.
const DefaultSource = "groundStation"

// ErrMissing is returned when a required dependency is not configured.
var ErrMissing = errors.New("missing station dependency")

// Result describes how one AUTH_REQUEST or PROOF was answered.
type Result uint8

const (
	// ResultChallenged means a CHALLENGE was sent.
	ResultChallenged Result = iota
	// ResultAccepted means the proof verified.
	ResultAccepted
	// ResultUnauthorized means the identity is not allowed.
	ResultUnauthorized
	// ResultMalformed means the message could not be decoded.
	ResultMalformed
	// ResultUnknownChallenge means no identity holds the proof's challenge.
	ResultUnknownChallenge
	// ResultNoEntry means the identity has no registered commitment.
	ResultNoEntry
	// ResultRejected means verification failed.
	ResultRejected
	// ResultInternal means the station could not build a reply.
	ResultInternal
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case ResultChallenged:
		return "CHALLENGED"
	case ResultAccepted:
		return "ACCEPTED"
	case ResultUnauthorized:
		return "UNAUTHORIZED"
	case ResultMalformed:
		return "MALFORMED"
	case ResultUnknownChallenge:
		return "UNKNOWN_CHALLENGE"
	case ResultNoEntry:
		return "NO_ENTRY"
	case ResultRejected:
		return "REJECTED"
	case ResultInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Station.
type Config struct {
	// Conn sends replies. Required.
	Conn transport.Conn

	// Scheduler supplies the verification clock. Required.
	Scheduler timer.Scheduler

	// Engine verifies proofs (default: commitment.DefaultEngine).
	Engine *commitment.Engine

	// Policy authorizes identities (default: DefaultAllowList).
	Policy Policy

	// Challenges generates challenges (default: crypto/rand on the
	// scheduler clock).
	Challenges *commitment.ChallengeGenerator

	// Source names the station in telemetry (default: groundStation).
	Source string

	// SessionID tags protocol log events (default: random UUID).
	SessionID string

	// Stats receives counters (optional).
	Stats stats.Sink

	// ProtocolLogger captures protocol events (optional).
	ProtocolLogger plog.Logger

	// Logger for operational messages (optional).
	Logger *slog.Logger

	// OnResult is called after every answered request or proof (optional).
	OnResult func(identity string, result Result)
}

// Station is the ground station state machine.
type Station struct {
	config   Config
	registry *Registry
	stats    *stats.Recorder
	rec      *plog.Recorder
	stopped  bool
}

// NewStation creates a station with an empty registry.
func NewStation(config Config) (*Station, error) {
	if config.Conn == nil {
		return nil, fmt.Errorf("%w: conn", ErrMissing)
	}
	if config.Scheduler == nil {
		return nil, fmt.Errorf("%w: scheduler", ErrMissing)
	}
	if config.Engine == nil {
		config.Engine = commitment.DefaultEngine()
	}
	if config.Policy == nil {
		config.Policy = DefaultAllowList()
	}
	if config.Challenges == nil {
		config.Challenges = commitment.NewChallengeGenerator(config.Scheduler, nil)
	}
	if config.Source == "" {
		config.Source = DefaultSource
	}
	if config.SessionID == "" {
		config.SessionID = uuid.NewString()
	}

	now := config.Scheduler.Now
	return &Station{
		config:   config,
		registry: NewRegistry(),
		stats:    stats.NewRecorder(config.Source, config.Stats, now),
		rec:      plog.NewRecorder(config.ProtocolLogger, config.SessionID, plog.RoleStation, now),
	}, nil
}

// Registry returns the station's registry.
func (s *Station) Registry() *Registry {
	return s.registry
}

// Policy returns the authorization policy.
func (s *Station) Policy() Policy {
	return s.config.Policy
}

// Counters returns the request, success and failure counts.
func (s *Station) Counters() stats.Counters {
	return s.stats.Counters()
}

// SessionID returns the protocol log session ID.
func (s *Station) SessionID() string {
	return s.config.SessionID
}

// Stop records the teardown scalars. It is idempotent.
func (s *Station) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	s.stats.Finish(stats.StationNames)
}

// HandleDatagram reacts to one datagram. Datagrams after Stop are dropped.
func (s *Station) HandleDatagram(dg transport.Datagram) {
	if s.stopped {
		s.debugLog("dropping datagram after stop", "from", dg.From.String())
		return
	}
	from := dg.From

	msg, err := wire.Decode(dg.Data)
	if err != nil {
		s.handleDecodeError(dg, err)
		return
	}
	s.rec.Message(plog.DirectionIn, from.String(), "", msg)

	switch m := msg.(type) {
	case *wire.AuthRequest:
		s.stats.Request()
		s.handleAuthRequest(m, from)
	case *wire.Proof:
		s.handleProof(m, from)
	default:
		s.warnLog("unexpected message for station", "tag", msg.Tag().String(), "from", from.String())
	}
}

func (s *Station) handleDecodeError(dg transport.Datagram, err error) {
	from := dg.From.String()
	s.rec.Error(plog.LayerWire, from, "", err, "decode")

	if errors.Is(err, wire.ErrEmpty) {
		return
	}
	if errors.Is(err, wire.ErrUnknownType) {
		s.warnLog("unknown message type", "from", from, "error", err)
		return
	}

	tag, _ := wire.PeekTag(dg.Data)
	switch tag {
	case wire.TagAuthRequest:
		s.stats.Request()
		s.errorLog("invalid auth request", "from", from, "error", err)
	case wire.TagProof:
		s.errorLog("invalid proof", "from", from, "error", err)
	default:
		s.debugLog("dropping malformed message", "tag", tag.String(), "from", from, "error", err)
		return
	}
	s.stats.Failure()
	s.reply(&wire.AuthFailure{}, dg.From, "")
	s.result("", ResultMalformed)
}

func (s *Station) handleAuthRequest(m *wire.AuthRequest, from transport.Addr) {
	id := m.Identity

	if !s.config.Policy.IsAuthorized(id) {
		s.warnLog("unauthorized drone", "drone", id, "from", from.String())
		s.reply(&wire.AuthFailure{}, from, id)
		s.stats.Failure()
		s.rec.Auth(id, from.String(), plog.OutcomeFailure, "unauthorized", 0)
		s.result(id, ResultUnauthorized)
		return
	}

	// The first commitment stays registered for the station's lifetime.
	entry, created := s.registry.EnsureEntry(id, m.Commitment)
	switch {
	case created:
		s.infoLog("registered drone", "drone", id)
	case !entry.Matches(m.Commitment):
		s.warnLog("commitment differs from registered entry", "drone", id)
	}

	challenge, err := s.config.Challenges.Next()
	if err != nil {
		s.errorLog("challenge generation failed", "drone", id, "error", err)
		s.rec.Error(plog.LayerSession, from.String(), id, err, "challenge")
		s.result(id, ResultInternal)
		return
	}
	s.registry.SetPending(id, challenge, s.config.Scheduler.Now())
	s.registry.SetAddress(id, from)

	s.debugLog("sending challenge", "drone", id, "challenge", challenge)
	s.reply(&wire.Challenge{Challenge: challenge}, from, id)
	s.result(id, ResultChallenged)
}

func (s *Station) handleProof(m *wire.Proof, from transport.Addr) {
	id, ok := s.registry.FindByChallenge(m.Challenge)
	if !ok {
		s.errorLog("unknown challenge in proof", "from", from.String())
		s.reply(&wire.AuthFailure{}, from, "")
		s.result("", ResultUnknownChallenge)
		return
	}

	entry, ok := s.registry.Entry(id)
	if !ok {
		s.errorLog("no verifier entry", "drone", id)
		s.reply(&wire.AuthFailure{}, from, id)
		s.result(id, ResultNoEntry)
		return
	}

	now := s.config.Scheduler.Now()
	if s.config.Engine.Verify(entry, m.Proof, now) {
		var rtt time.Duration
		if p, ok := s.registry.Pending(id); ok {
			rtt = now.Sub(p.IssuedAt)
		}
		s.stats.Success()
		s.registry.RemovePending(id)
		s.registry.Failures().Reset(id)
		s.infoLog("drone authenticated", "drone", id)
		s.reply(&wire.AuthSuccess{}, from, id)
		s.rec.Auth(id, from.String(), plog.OutcomeSuccess, "", rtt)
		s.result(id, ResultAccepted)
		return
	}

	s.stats.Failure()
	s.registry.Failures().RecordFailure(id, now)
	s.errorLog("authentication failed", "drone", id,
		"consecutive_failures", s.registry.Failures().Consecutive(id),
		"skew", now.Sub(m.Time()))
	s.reply(&wire.AuthFailure{}, from, id)
	s.rec.Auth(id, from.String(), plog.OutcomeFailure, "verification failed", 0)
	s.result(id, ResultRejected)
}

func (s *Station) reply(m wire.Message, to transport.Addr, identity string) {
	data, err := wire.Encode(m)
	if err != nil {
		s.errorLog("encode failed", "tag", m.Tag().String(), "error", err)
		return
	}
	s.rec.Message(plog.DirectionOut, to.String(), identity, m)
	if err := s.config.Conn.SendTo(data, to); err != nil {
		s.warnLog("send failed", "tag", m.Tag().String(), "to", to.String(), "error", err)
		s.rec.Error(plog.LayerTransport, to.String(), identity, err, "send "+m.Tag().String())
	}
}

func (s *Station) result(identity string, r Result) {
	if s.config.OnResult != nil {
		s.config.OnResult(identity, r)
	}
}

func (s *Station) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

func (s *Station) infoLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, args...)
	}
}

func (s *Station) warnLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Warn(msg, args...)
	}
}

func (s *Station) errorLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, args...)
	}
}
