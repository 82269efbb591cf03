package prover

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/droneauth/droneauth-go/pkg/commitment"
	"github.com/droneauth/droneauth-go/pkg/display"
	plog "github.com/droneauth/droneauth-go/pkg/log"
	"github.com/droneauth/droneauth-go/pkg/stats"
	"github.com/droneauth/droneauth-go/pkg/timer"
	"github.com/droneauth/droneauth-go/pkg/transport"
	"github.com/droneauth/droneauth-go/pkg/wire"
)

// Session defaults.
const (
	DefaultAuthTimeout   = 5 * time.Second
	DefaultRetryInterval = 2 * time.Second
	DefaultStartTime     = 100 * time.Millisecond
	DefaultProofDelay    = time.Millisecond
)

// Session errors.
var (
	ErrInvalidState = errors.New("invalid session state")
	ErrMissing      = errors.New("missing session dependency")
)

// Config configures a Session.
type Config struct {
	// Prover holds the drone's identity, secret and commitment. Required.
	Prover *commitment.Prover

	// Conn sends datagrams. Required.
	Conn transport.Conn

	// Destination is the ground station address. Required.
	Destination transport.Addr

	// Scheduler drives all timers. Required.
	Scheduler timer.Scheduler

	// AuthTimeout bounds one handshake (default 5s).
	AuthTimeout time.Duration

	// RetryInterval is the delay before re-sending after a timeout (default 2s).
	RetryInterval time.Duration

	// StartTime delays the first request when using ScheduleStart (0 starts
	// on the next reaction).
	StartTime time.Duration

	// ProofDelay models proof generation cost (default 1ms).
	ProofDelay time.Duration

	// Source names this drone in telemetry and display (default: identity).
	Source string

	// SessionID tags protocol log events (default: random UUID).
	SessionID string

	// Stats receives counters (optional).
	Stats stats.Sink

	// Display receives indicator updates (optional).
	Display display.Observer

	// ProtocolLogger captures protocol events (optional).
	ProtocolLogger plog.Logger

	// Logger for operational messages (optional).
	Logger *slog.Logger

	// OnStateChange is called after every transition (optional).
	OnStateChange func(oldState, newState State)
}

func (c *Config) applyDefaults() {
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = DefaultAuthTimeout
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.StartTime < 0 {
		c.StartTime = 0
	}
	if c.ProofDelay < 0 {
		c.ProofDelay = 0
	}
	if c.Source == "" && c.Prover != nil {
		c.Source = c.Prover.Identity()
	}
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}
}

// Session is the drone-side authentication state machine.
type Session struct {
	config Config
	state  State

	challenge   string
	requestedAt time.Time

	startTimer   *timer.Timer
	timeoutTimer *timer.Timer
	proofTimer   *timer.Timer
	retryTimer   *timer.Timer

	stats *stats.Recorder
	rec   *plog.Recorder
}

// New creates an idle session.
func New(config Config) (*Session, error) {
	switch {
	case !config.Prover.Initialized():
		return nil, fmt.Errorf("%w: %w", ErrMissing, commitment.ErrProverUninitialized)
	case config.Conn == nil:
		return nil, fmt.Errorf("%w: conn", ErrMissing)
	case config.Scheduler == nil:
		return nil, fmt.Errorf("%w: scheduler", ErrMissing)
	case config.Destination.IsZero():
		return nil, fmt.Errorf("%w: destination", ErrMissing)
	}
	config.applyDefaults()

	sched := config.Scheduler
	s := &Session{
		config:       config,
		state:        StateIdle,
		startTimer:   timer.New(sched, "start"),
		timeoutTimer: timer.New(sched, "authTimeout"),
		proofTimer:   timer.New(sched, "proofGeneration"),
		retryTimer:   timer.New(sched, "retry"),
		stats:        stats.NewRecorder(config.Source, config.Stats, sched.Now),
		rec:          plog.NewRecorder(config.ProtocolLogger, config.SessionID, plog.RoleDrone, sched.Now),
	}
	return s, nil
}

// Identity returns the drone identity.
func (s *Session) Identity() string {
	return s.config.Prover.Identity()
}

// SessionID returns the protocol log session ID.
func (s *Session) SessionID() string {
	return s.config.SessionID
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Challenge returns the challenge being answered, if any.
func (s *Session) Challenge() string {
	return s.challenge
}

// Counters returns the request, success and failure counts.
func (s *Session) Counters() stats.Counters {
	return s.stats.Counters()
}

// ScheduleStart arms Start after the configured StartTime.
func (s *Session) ScheduleStart() error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: schedule start in %s", ErrInvalidState, s.state)
	}
	s.startTimer.Arm(s.config.StartTime, func() {
		if err := s.Start(); err != nil {
			s.errorLog("scheduled start failed", "error", err)
		}
	})
	return nil
}

// Start sends AUTH_REQUEST and arms the timeout. It is allowed from Idle
// and, as a manual retry, from Failed.
func (s *Session) Start() error {
	if s.state != StateIdle && s.state != StateFailed {
		return fmt.Errorf("%w: start in %s", ErrInvalidState, s.state)
	}
	s.startTimer.Cancel()
	s.beginCycle("start")
	return nil
}

// Stop cancels all timers and records the teardown scalars. It is
// idempotent.
func (s *Session) Stop() {
	if s.state == StateStopped {
		return
	}
	s.startTimer.Cancel()
	s.cancelCycleTimers()
	s.setState(StateStopped, "stop")
	s.stats.Finish(stats.DroneNames)
}

// HandleDatagram reacts to one datagram from the network.
func (s *Session) HandleDatagram(dg transport.Datagram) {
	from := dg.From.String()

	msg, err := wire.Decode(dg.Data)
	if err != nil {
		switch {
		case errors.Is(err, wire.ErrEmpty):
		case errors.Is(err, wire.ErrUnknownType):
			s.warnLog("unknown message type", "from", from, "error", err)
		default:
			s.debugLog("dropping malformed message", "from", from, "error", err)
		}
		s.rec.Error(plog.LayerWire, from, s.Identity(), err, "decode")
		return
	}
	s.rec.Message(plog.DirectionIn, from, s.Identity(), msg)

	if !s.state.Active() {
		s.debugLog("ignoring message", "tag", msg.Tag().String(), "state", s.state.String())
		return
	}

	switch m := msg.(type) {
	case *wire.Challenge:
		s.handleChallenge(m)
	case *wire.AuthSuccess:
		s.handleSuccess()
	case *wire.AuthFailure:
		s.handleFailure()
	default:
		s.warnLog("unexpected message for drone", "tag", msg.Tag().String(), "from", from)
	}
}

func (s *Session) beginCycle(reason string) {
	s.cancelCycleTimers()
	s.challenge = ""
	s.requestedAt = s.config.Scheduler.Now()

	s.setState(StateAwaitingChallenge, reason)

	commit, err := s.config.Prover.Commitment()
	if err != nil {
		s.errorLog("prover not initialized", "error", err)
		s.rec.Error(plog.LayerSession, "", s.Identity(), err, "auth request")
		return
	}
	s.send(&wire.AuthRequest{Identity: s.Identity(), Commitment: commit})
	s.stats.Request()

	s.timeoutTimer.Arm(s.config.AuthTimeout, s.handleTimeout)
}

func (s *Session) handleChallenge(m *wire.Challenge) {
	if s.state != StateAwaitingChallenge {
		s.debugLog("ignoring challenge", "state", s.state.String())
		return
	}
	s.challenge = m.Challenge
	s.setState(StateGeneratingProof, "challenge received")
	s.proofTimer.Arm(s.config.ProofDelay, s.sendProof)
}

// sendProof also runs after an AUTH_FAILURE arrived during generation;
// that failure belongs to an earlier round.
func (s *Session) sendProof() {
	if s.state != StateGeneratingProof && s.state != StateFailed {
		return
	}
	proof, err := s.config.Prover.Prove(s.challenge, s.config.Scheduler.Now())
	if err != nil {
		s.errorLog("proof generation failed", "error", err)
		s.rec.Error(plog.LayerSession, "", s.Identity(), err, "proof")
		return
	}
	s.send(&wire.Proof{Proof: proof})
	s.setState(StateAwaitingResult, "proof sent")
}

func (s *Session) handleSuccess() {
	s.cancelCycleTimers()
	s.stats.Success()
	latency := s.config.Scheduler.Now().Sub(s.requestedAt)
	s.setState(StateAuthenticated, "auth success")
	s.rec.Auth(s.Identity(), s.config.Destination.String(), plog.OutcomeSuccess, "", latency)
	s.notify(display.Authenticated)
	s.infoLog("authenticated", "latency", latency)
}

func (s *Session) handleFailure() {
	if s.state == StateFailed {
		s.debugLog("ignoring duplicate auth failure")
		return
	}
	// A pending retry or proof still fires.
	s.timeoutTimer.Cancel()
	s.stats.Failure()
	s.setState(StateFailed, "auth failure")
	s.rec.Auth(s.Identity(), s.config.Destination.String(), plog.OutcomeFailure, "rejected by station", 0)
	s.notify(display.Failed)
	s.warnLog("authentication failed")
}

func (s *Session) handleTimeout() {
	if !s.state.Active() || s.state == StateFailed || s.state == StateRetryPending {
		return
	}
	s.proofTimer.Cancel()
	s.stats.Failure()
	s.rec.Auth(s.Identity(), s.config.Destination.String(), plog.OutcomeTimeout, "no result from "+s.state.String(), 0)
	s.notify(display.TimedOut)
	s.warnLog("authentication timeout", "state", s.state.String(), "retry_in", s.config.RetryInterval)

	s.setState(StateRetryPending, "timeout")
	s.retryTimer.Arm(s.config.RetryInterval, func() {
		s.beginCycle("retry")
	})
}

func (s *Session) cancelCycleTimers() {
	s.timeoutTimer.Cancel()
	s.proofTimer.Cancel()
	s.retryTimer.Cancel()
}

func (s *Session) send(m wire.Message) {
	data, err := wire.Encode(m)
	if err != nil {
		s.errorLog("encode failed", "tag", m.Tag().String(), "error", err)
		return
	}
	dest := s.config.Destination
	s.rec.Message(plog.DirectionOut, dest.String(), s.Identity(), m)
	if err := s.config.Conn.SendTo(data, dest); err != nil {
		s.warnLog("send failed", "tag", m.Tag().String(), "to", dest.String(), "error", err)
		s.rec.Error(plog.LayerTransport, dest.String(), s.Identity(), err, "send "+m.Tag().String())
	}
}

func (s *Session) setState(newState State, reason string) {
	old := s.state
	if old == newState {
		return
	}
	s.state = newState
	s.rec.State(s.Identity(), old.String(), newState.String(), reason)
	s.debugLog("state change", "from", old.String(), "to", newState.String(), "reason", reason)
	if s.config.OnStateChange != nil {
		s.config.OnStateChange(old, newState)
	}
}

func (s *Session) notify(ind display.Indicator) {
	if s.config.Display != nil {
		s.config.Display.Update(s.config.Source, ind)
	}
}

func (s *Session) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, append([]any{"drone", s.Identity()}, args...)...)
	}
}

func (s *Session) infoLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, append([]any{"drone", s.Identity()}, args...)...)
	}
}

func (s *Session) warnLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Warn(msg, append([]any{"drone", s.Identity()}, args...)...)
	}
}

func (s *Session) errorLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, append([]any{"drone", s.Identity()}, args...)...)
	}
}
