package sim

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droneauth/droneauth-go/pkg/config"
	"github.com/droneauth/droneauth-go/pkg/display"
	plog "github.com/droneauth/droneauth-go/pkg/log"
	"github.com/droneauth/droneauth-go/pkg/prover"
	"github.com/droneauth/droneauth-go/pkg/stats"
	"github.com/droneauth/droneauth-go/pkg/verifier"
)

func singleDrone(id string) config.Simulation {
	cfg := config.DefaultSimulation()
	d := config.DefaultDrone()
	d.DroneID = id
	d.Password = "pw"
	cfg.Drones = []config.Drone{d}
	return cfg
}

type captureLogger struct {
	events []plog.Event
}

func (c *captureLogger) Log(e plog.Event) { c.events = append(c.events, e) }

func TestDefaultFleet(t *testing.T) {
	logger := &captureLogger{}
	res, err := Run(Options{Config: config.DefaultSimulation(), RunID: "run-1", ProtocolLogger: logger})
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, res.Elapsed)
	require.Len(t, res.Drones, 6)
	for _, id := range verifier.DefaultIdentities {
		d, ok := res.Drone(id)
		require.True(t, ok, id)
		assert.Equal(t, prover.StateAuthenticated, d.State, id)
		assert.Equal(t, stats.Counters{Requests: 1, Successes: 1}, d.Counters, id)
		assert.Equal(t, display.Authenticated, d.Indicator, id)

		rate, ok := res.Sink.Scalar(id, "successRate")
		require.True(t, ok)
		assert.Equal(t, 100.0, rate)
	}

	intruder, ok := res.Drone("DRONE_999")
	require.True(t, ok)
	assert.Equal(t, prover.StateFailed, intruder.State)
	assert.Equal(t, stats.Counters{Requests: 1, Failures: 1}, intruder.Counters)
	assert.Equal(t, display.Failed, intruder.Indicator)

	assert.Equal(t, stats.Counters{Requests: 6, Successes: 5, Failures: 1}, res.Station.Counters)
	assert.Equal(t, 5, res.Station.Results[verifier.ResultChallenged])
	assert.Equal(t, 5, res.Station.Results[verifier.ResultAccepted])
	assert.Equal(t, 1, res.Station.Results[verifier.ResultUnauthorized])
	require.Len(t, res.Station.Entries, 5)
	for _, e := range res.Station.Entries {
		assert.Empty(t, e.PendingChallenge, e.Identity)
	}

	total, ok := res.Sink.Scalar(verifier.DefaultSource, "totalAuthRequests")
	require.True(t, ok)
	assert.Equal(t, 6.0, total)

	assert.Equal(t, 22, res.Network.Sent)
	assert.Equal(t, 22, res.Network.Delivered)
	assert.NotEmpty(t, logger.events)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, res))
	assert.Contains(t, buf.String(), "DRONE_999")
	assert.Contains(t, buf.String(), "requests=6 successes=5 failures=1")
}

func TestTimeoutThenResend(t *testing.T) {
	cfg := singleDrone("DRONE_001")
	cfg.Network.LossRate = 1

	s, err := New(Options{Config: cfg})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	s.RunFor(20 * time.Second)

	res, err := s.Finish()
	require.NoError(t, err)

	d := res.Drones[0]
	assert.Equal(t, prover.StateRetryPending, d.State)
	assert.Equal(t, stats.Counters{Requests: 3, Failures: 3}, d.Counters)
	assert.Equal(t, display.TimedOut, d.Indicator)
	assert.Equal(t, stats.Counters{}, res.Station.Counters)
	assert.Equal(t, 3, res.Network.Sent)
	assert.Equal(t, 3, res.Network.Dropped)

	_, err = s.Finish()
	assert.ErrorIs(t, err, ErrFinished)
	assert.ErrorIs(t, s.Start(), ErrFinished)
}

func TestLossyNetworkEventuallyAuthenticates(t *testing.T) {
	cfg := config.DefaultSimulation()
	cfg.Network.LossRate = 0.3
	cfg.Network.Jitter = 3 * time.Millisecond
	cfg.Seed = 42
	cfg.Duration = 10 * time.Minute

	res, err := Run(Options{Config: cfg})
	require.NoError(t, err)

	for _, id := range verifier.DefaultIdentities {
		d, _ := res.Drone(id)
		assert.Equal(t, prover.StateAuthenticated, d.State, id)
		assert.Equal(t, uint64(1), d.Counters.Successes, id)
		assert.Equal(t, d.Counters.Requests, d.Counters.Successes+d.Counters.Failures, id)
	}
	intruder, _ := res.Drone("DRONE_999")
	assert.NotEqual(t, prover.StateAuthenticated, intruder.State)
	assert.Zero(t, intruder.Counters.Successes)
	assert.Positive(t, res.Network.Dropped)
}

func TestDuplicatedRequestSupersedesChallenge(t *testing.T) {
	cfg := singleDrone("DRONE_002")
	cfg.Network.DuplicateRate = 1

	res, err := Run(Options{Config: cfg})
	require.NoError(t, err)

	d := res.Drones[0]
	assert.Equal(t, prover.StateFailed, d.State)
	assert.Equal(t, stats.Counters{Requests: 1, Failures: 1}, d.Counters)

	assert.Equal(t, uint64(2), res.Station.Counters.Requests)
	assert.Zero(t, res.Station.Counters.Failures, "unknown challenge is not counted")
	assert.Equal(t, 2, res.Station.Results[verifier.ResultChallenged])
	assert.Equal(t, 2, res.Station.Results[verifier.ResultUnknownChallenge])
	require.Len(t, res.Station.Entries, 1)
	assert.NotEmpty(t, res.Station.Entries[0].PendingChallenge)
}

func TestSHA512Fleet(t *testing.T) {
	cfg := singleDrone("DRONE_003")
	cfg.Station.Hash = config.HashSHA512
	cfg.Drones[0].Hash = config.HashSHA512

	res, err := Run(Options{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, prover.StateAuthenticated, res.Drones[0].State)
}

func TestMismatchedHashRejected(t *testing.T) {
	cfg := singleDrone("DRONE_003")
	cfg.Station.Hash = config.HashSHA512

	res, err := Run(Options{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, prover.StateFailed, res.Drones[0].State)
	assert.Equal(t, 1, res.Station.Results[verifier.ResultRejected])
}

func TestExternalObservers(t *testing.T) {
	board := display.NewBoard()
	sink := stats.NewMemorySink()
	res, err := Run(Options{Config: singleDrone("DRONE_004"), Display: board, Sink: sink})
	require.NoError(t, err)

	assert.Equal(t, display.Authenticated, board.Get("DRONE_004"))
	assert.Equal(t, res.Sink.Scalars(), sink.Scalars())
	assert.Len(t, sink.Series("DRONE_004", stats.SignalSuccess), 1)
}

func TestSessionAccess(t *testing.T) {
	s, err := New(Options{Config: singleDrone("DRONE_005")})
	require.NoError(t, err)

	sess, ok := s.Session("DRONE_005")
	require.True(t, ok)
	assert.Equal(t, prover.StateIdle, sess.State())
	_, ok = s.Session("DRONE_404")
	assert.False(t, ok)

	require.NoError(t, s.Start())
	s.RunFor(time.Second)
	assert.Equal(t, prover.StateAuthenticated, sess.State())
	assert.Equal(t, DefaultStart.Add(time.Second), s.Scheduler().Now())
	assert.NotNil(t, s.Station())
	assert.Equal(t, 4, s.Network().Stats().Sent)
}

func TestInvalidConfig(t *testing.T) {
	cfg := config.DefaultSimulation()
	cfg.Duration = 0
	_, err := New(Options{Config: cfg})
	assert.ErrorIs(t, err, config.ErrInvalid)
}
