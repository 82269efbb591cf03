package prover

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/droneauth/droneauth-go/internal/mocks"
	"github.com/droneauth/droneauth-go/pkg/commitment"
	"github.com/droneauth/droneauth-go/pkg/display"
	"github.com/droneauth/droneauth-go/pkg/stats"
	"github.com/droneauth/droneauth-go/pkg/timer"
	"github.com/droneauth/droneauth-go/pkg/transport"
	"github.com/droneauth/droneauth-go/pkg/wire"
)

var (
	epoch       = time.Unix(1_700_000_000, 0)
	stationAddr = transport.Addr{Host: "10.0.0.1", Port: 5000}
	droneAddr   = transport.Addr{Host: "10.0.0.2", Port: 5001}
)

type fixture struct {
	v       *timer.Virtual
	conn    *mocks.Conn
	board   *display.Board
	sink    *stats.MemorySink
	session *Session
	states  []State
}

func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()
	p, err := commitment.NewProver(nil, "DRONE_001", "pw1", commitment.WithNonce(bytes.Repeat([]byte{7}, 32)))
	require.NoError(t, err)

	f := &fixture{
		v:     timer.NewVirtual(epoch),
		conn:  mocks.NewConn(droneAddr),
		board: display.NewBoard(),
		sink:  stats.NewMemorySink(),
	}
	cfg := Config{
		Prover:      p,
		Conn:        f.conn,
		Destination: stationAddr,
		Scheduler:   f.v,
		Stats:       f.sink,
		Display:     f.board,
		OnStateChange: func(_, n State) {
			f.states = append(f.states, n)
		},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	f.session, err = New(cfg)
	require.NoError(t, err)
	return f
}

func (f *fixture) deliver(t *testing.T, m wire.Message) {
	t.Helper()
	data, err := wire.Encode(m)
	require.NoError(t, err)
	f.session.HandleDatagram(transport.Datagram{From: stationAddr, Data: data})
}

func TestNewValidatesConfig(t *testing.T) {
	p, err := commitment.NewProver(nil, "DRONE_001", "pw1")
	require.NoError(t, err)
	v := timer.NewVirtual(epoch)
	conn := mocks.NewConn(droneAddr)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no prover", Config{Conn: conn, Scheduler: v, Destination: stationAddr}},
		{"zero prover", Config{Prover: &commitment.Prover{}, Conn: conn, Scheduler: v, Destination: stationAddr}},
		{"no conn", Config{Prover: p, Scheduler: v, Destination: stationAddr}},
		{"no scheduler", Config{Prover: p, Conn: conn, Destination: stationAddr}},
		{"no destination", Config{Prover: p, Conn: conn, Scheduler: v}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrMissing)
		})
	}

	_, err = New(Config{Conn: conn, Scheduler: v, Destination: stationAddr})
	assert.ErrorIs(t, err, commitment.ErrProverUninitialized)
}

func TestDefaults(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, DefaultAuthTimeout, f.session.config.AuthTimeout)
	assert.Equal(t, DefaultRetryInterval, f.session.config.RetryInterval)
	assert.Equal(t, "DRONE_001", f.session.config.Source)
	assert.NotEmpty(t, f.session.SessionID())
	assert.Equal(t, StateIdle, f.session.State())
}

func TestHappyPath(t *testing.T) {
	f := newFixture(t)
	s := f.session

	require.NoError(t, s.Start())
	assert.Equal(t, StateAwaitingChallenge, s.State())

	msg, to, ok := f.conn.Last()
	require.True(t, ok)
	assert.Equal(t, stationAddr, to)
	req := msg.(*wire.AuthRequest)
	assert.Equal(t, "DRONE_001", req.Identity)
	commit, _ := s.config.Prover.Commitment()
	assert.Equal(t, commit, req.Commitment)

	f.v.RunFor(time.Second)
	f.deliver(t, &wire.Challenge{Challenge: "CHALLENGE_1_aa"})
	assert.Equal(t, StateGeneratingProof, s.State())
	assert.Equal(t, "CHALLENGE_1_aa", s.Challenge())
	assert.Len(t, f.conn.Sent, 1, "proof is delayed")

	f.v.RunFor(DefaultProofDelay)
	assert.Equal(t, StateAwaitingResult, s.State())
	msg, _, ok = f.conn.Last()
	require.True(t, ok)
	proof := msg.(*wire.Proof)
	assert.Equal(t, "CHALLENGE_1_aa", proof.Challenge)
	assert.Equal(t, commit, proof.Commitment)
	assert.Equal(t, commitment.Timestamp(epoch.Add(time.Second+DefaultProofDelay)), proof.Timestamp)
	assert.Len(t, proof.Digest, 32)

	f.deliver(t, &wire.AuthSuccess{})
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, stats.Counters{Requests: 1, Successes: 1}, s.Counters())
	assert.Equal(t, display.Authenticated, f.board.Get("DRONE_001"))

	f.v.RunFor(time.Minute)
	assert.Equal(t, []wire.Tag{wire.TagAuthRequest, wire.TagProof}, f.conn.Tags(), "no retry after success")
	assert.Equal(t, 0, f.v.Pending())

	assert.Equal(t, []State{StateAwaitingChallenge, StateGeneratingProof, StateAwaitingResult, StateAuthenticated}, f.states)
}

func TestTimeoutRetriesIndefinitely(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Start())

	f.v.RunFor(DefaultAuthTimeout)
	assert.Equal(t, StateRetryPending, s.State())
	assert.Equal(t, display.TimedOut, f.board.Get("DRONE_001"))
	assert.Equal(t, uint64(1), s.Counters().Failures)
	assert.Len(t, f.conn.Sent, 1)

	f.v.RunFor(DefaultRetryInterval)
	assert.Equal(t, StateAwaitingChallenge, s.State())
	assert.Equal(t, []wire.Tag{wire.TagAuthRequest, wire.TagAuthRequest}, f.conn.Tags())

	// Two more full cycles.
	f.v.RunFor(2 * (DefaultAuthTimeout + DefaultRetryInterval))
	assert.Len(t, f.conn.Sent, 4)
	assert.Equal(t, stats.Counters{Requests: 4, Failures: 3}, s.Counters())
}

func TestChallengeDoesNotResetTimeout(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Start())

	f.v.RunFor(3 * time.Second)
	f.deliver(t, &wire.Challenge{Challenge: "c"})
	f.v.RunFor(DefaultProofDelay)
	require.Equal(t, StateAwaitingResult, s.State())

	deadline, ok := s.timeoutTimer.Deadline()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(DefaultAuthTimeout), deadline)

	f.v.RunUntil(epoch.Add(DefaultAuthTimeout))
	assert.Equal(t, StateRetryPending, s.State())

	f.v.RunFor(DefaultRetryInterval)
	assert.Equal(t, []wire.Tag{wire.TagAuthRequest, wire.TagProof, wire.TagAuthRequest}, f.conn.Tags())
	assert.Empty(t, s.Challenge(), "new cycle forgets the old challenge")
}

func TestTimeoutCancelsPendingProof(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.ProofDelay = 10 * time.Second })
	s := f.session
	require.NoError(t, s.Start())
	f.deliver(t, &wire.Challenge{Challenge: "c"})

	f.v.RunFor(DefaultAuthTimeout + time.Second)
	assert.Equal(t, StateRetryPending, s.State())
	assert.Equal(t, []wire.Tag{wire.TagAuthRequest}, f.conn.Tags())
}

func TestAuthFailureDoesNotRetry(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Start())
	f.deliver(t, &wire.AuthFailure{})

	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, display.Failed, f.board.Get("DRONE_001"))
	assert.Equal(t, stats.Counters{Requests: 1, Failures: 1}, s.Counters())

	f.v.RunFor(time.Minute)
	assert.Len(t, f.conn.Sent, 1)

	f.deliver(t, &wire.AuthFailure{})
	assert.Equal(t, uint64(1), s.Counters().Failures, "duplicate failure ignored")

	require.NoError(t, s.Start(), "manual retry from Failed")
	assert.Equal(t, StateAwaitingChallenge, s.State())
	assert.Len(t, f.conn.Sent, 2)
}

func TestAuthFailureDuringRetryKeepsRetry(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Start())
	f.v.RunFor(DefaultAuthTimeout)
	require.Equal(t, StateRetryPending, s.State())

	f.deliver(t, &wire.AuthFailure{})
	assert.Equal(t, StateFailed, s.State())

	f.v.RunFor(DefaultRetryInterval)
	assert.Equal(t, StateAwaitingChallenge, s.State())
	assert.Equal(t, []wire.Tag{wire.TagAuthRequest, wire.TagAuthRequest}, f.conn.Tags())

	f.v.RunFor(time.Minute)
	assert.Greater(t, len(f.conn.Sent), 2, "retries continue")
}

func TestAuthFailureDuringGenerationSendsProof(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Start())
	f.deliver(t, &wire.Challenge{Challenge: "c"})
	require.Equal(t, StateGeneratingProof, s.State())

	f.deliver(t, &wire.AuthFailure{})
	assert.Equal(t, StateFailed, s.State())
	assert.False(t, s.timeoutTimer.Armed())

	f.v.RunFor(DefaultProofDelay)
	assert.Equal(t, StateAwaitingResult, s.State())
	assert.Equal(t, []wire.Tag{wire.TagAuthRequest, wire.TagProof}, f.conn.Tags())

	f.deliver(t, &wire.AuthSuccess{})
	assert.Equal(t, StateAuthenticated, s.State())
}

func TestLateSuccessAfterTimeout(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Start())
	f.v.RunFor(DefaultAuthTimeout)

	f.deliver(t, &wire.AuthSuccess{})
	assert.Equal(t, StateAuthenticated, s.State())
	f.v.RunFor(time.Minute)
	assert.Len(t, f.conn.Sent, 1, "pending retry cancelled")
}

func TestDuplicateChallengeIgnored(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Start())

	f.deliver(t, &wire.Challenge{Challenge: "first"})
	f.deliver(t, &wire.Challenge{Challenge: "second"})
	f.v.RunFor(time.Second)
	f.deliver(t, &wire.Challenge{Challenge: "third"})

	assert.Equal(t, "first", s.Challenge())
	assert.Equal(t, []wire.Tag{wire.TagAuthRequest, wire.TagProof}, f.conn.Tags())
}

func TestIgnoredInputs(t *testing.T) {
	f := newFixture(t)
	s := f.session

	f.deliver(t, &wire.Challenge{Challenge: "early"})
	assert.Equal(t, StateIdle, s.State(), "idle session ignores messages")

	require.NoError(t, s.Start())
	for _, data := range [][]byte{
		nil,
		{0x09},
		{0x02, 0xff, 0, 0, 0},
	} {
		s.HandleDatagram(transport.Datagram{From: stationAddr, Data: data})
	}
	f.deliver(t, &wire.AuthRequest{Identity: "DRONE_002"})
	f.deliver(t, &wire.Proof{})

	assert.Equal(t, StateAwaitingChallenge, s.State())
	assert.Len(t, f.conn.Sent, 1)
	assert.Equal(t, stats.Counters{Requests: 1}, s.Counters())
}

func TestStartInvalidState(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start())
	assert.ErrorIs(t, f.session.Start(), ErrInvalidState)
	assert.ErrorIs(t, f.session.ScheduleStart(), ErrInvalidState)
}

func TestScheduleStart(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.StartTime = DefaultStartTime })
	require.NoError(t, f.session.ScheduleStart())

	f.v.RunFor(DefaultStartTime - time.Nanosecond)
	assert.Equal(t, StateIdle, f.session.State())
	f.v.RunFor(time.Nanosecond)
	assert.Equal(t, StateAwaitingChallenge, f.session.State())
}

func TestStopRecordsScalars(t *testing.T) {
	sink := &mocks.Sink{}
	sink.On("Emit", "drone[0]", mock.Anything, mock.Anything, mock.Anything).Return()
	sink.On("RecordScalar", "drone[0]", "authRequests", 2.0).Return().Once()
	sink.On("RecordScalar", "drone[0]", "authSuccess", 1.0).Return().Once()
	sink.On("RecordScalar", "drone[0]", "authFailures", 1.0).Return().Once()
	sink.On("RecordScalar", "drone[0]", "successRate", 50.0).Return().Once()

	obs := &mocks.Observer{}
	obs.On("Update", "drone[0]", display.TimedOut).Return().Once()
	obs.On("Update", "drone[0]", display.Authenticated).Return().Once()

	f := newFixture(t, func(c *Config) {
		c.Source = "drone[0]"
		c.Stats = sink
		c.Display = obs
	})
	s := f.session
	require.NoError(t, s.Start())
	f.v.RunFor(DefaultAuthTimeout + DefaultRetryInterval)
	f.deliver(t, &wire.AuthSuccess{})

	s.Stop()
	s.Stop()
	assert.Equal(t, StateStopped, s.State())
	f.deliver(t, &wire.AuthFailure{})

	sink.AssertExpectations(t)
	obs.AssertExpectations(t)
	sink.AssertNumberOfCalls(t, "Emit", 4)
}

func TestStopCancelsTimers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start())
	f.session.Stop()

	f.v.RunFor(time.Minute)
	assert.Len(t, f.conn.Sent, 1)
	assert.Equal(t, 0, f.v.Pending())
}

func TestStateStrings(t *testing.T) {
	for s := StateIdle; s <= StateStopped; s++ {
		assert.NotEqual(t, "UNKNOWN", s.String())
	}
	assert.Equal(t, "UNKNOWN", State(99).String())
}
