// Package sim runs drones and a ground station against each other on an
// in-memory network in virtual time.
//
// A run is fully deterministic for a given configuration, start time and
// random source: the network draws loss and duplication from its seed and
// timer.Virtual fires events at equal instants in scheduling order.
package sim

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/droneauth/droneauth-go/pkg/commitment"
	"github.com/droneauth/droneauth-go/pkg/config"
	"github.com/droneauth/droneauth-go/pkg/display"
	plog "github.com/droneauth/droneauth-go/pkg/log"
	"github.com/droneauth/droneauth-go/pkg/prover"
	"github.com/droneauth/droneauth-go/pkg/stats"
	"github.com/droneauth/droneauth-go/pkg/timer"
	"github.com/droneauth/droneauth-go/pkg/transport"
	"github.com/droneauth/droneauth-go/pkg/verifier"
)

// DefaultStart is the virtual clock origin used when none is given.
var DefaultStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Simulation errors.
var (
	ErrFinished = errors.New("simulation already finished")
)

// Options configures a Simulation.
type Options struct {
	// Config describes the station, the drones and the network. Required.
	Config config.Simulation

	// Start is the virtual clock origin (default DefaultStart).
	Start time.Time

	// Random feeds nonces and challenges (default crypto/rand).
	Random io.Reader

	// RunID tags the run and derives session IDs (default: random UUID).
	RunID string

	// Sink receives telemetry in addition to the run's memory sink (optional).
	Sink stats.Sink

	// Display receives indicator updates in addition to the run's board
	// (optional).
	Display display.Observer

	// ProtocolLogger captures protocol events of every node (optional).
	ProtocolLogger plog.Logger

	// Logger for operational messages (optional).
	Logger *slog.Logger
}

// DroneSummary is one drone's outcome.
type DroneSummary struct {
	Identity  string
	Addr      transport.Addr
	State     prover.State
	Counters  stats.Counters
	Indicator display.Indicator
}

// StationSummary is the station's outcome.
type StationSummary struct {
	Addr     transport.Addr
	Counters stats.Counters
	Results  map[verifier.Result]int
	Entries  []verifier.EntryInfo
}

// Result is the outcome of a run.
type Result struct {
	RunID   string
	Elapsed time.Duration
	Drones  []DroneSummary
	Station StationSummary
	Network transport.NetworkStats
	Sink    *stats.MemorySink
	Board   *display.Board
}

// Drone returns the summary for identity.
func (r Result) Drone(identity string) (DroneSummary, bool) {
	for _, d := range r.Drones {
		if d.Identity == identity {
			return d, true
		}
	}
	return DroneSummary{}, false
}

type drone struct {
	session *prover.Session
	conn    *transport.MemConn
	prover  *commitment.Prover
}

// Simulation is one wired network of drones and a station.
type Simulation struct {
	opts     Options
	sched    *timer.Virtual
	network  *transport.Network
	station  *verifier.Station
	stConn   *transport.MemConn
	drones   []*drone
	sink     *stats.MemorySink
	board    *display.Board
	results  map[verifier.Result]int
	finished bool
}

// StationAddr is the station's address on the simulated network.
func StationAddr(port int) transport.Addr {
	return transport.Addr{Host: "10.0.0.1", Port: port}
}

// DroneAddr is the address of the i-th drone.
func DroneAddr(i, port int) transport.Addr {
	if port == 0 {
		port = 6000 + i
	}
	return transport.Addr{Host: fmt.Sprintf("10.0.1.%d", i+1), Port: port}
}

// New wires the simulation without starting any drone.
func New(opts Options) (*Simulation, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Start.IsZero() {
		opts.Start = DefaultStart
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	s := &Simulation{
		opts:    opts,
		sched:   timer.NewVirtual(opts.Start),
		sink:    stats.NewMemorySink(),
		board:   display.NewBoard(),
		results: make(map[verifier.Result]int),
	}

	network, err := transport.NewNetwork(s.sched, cfg.NetworkConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	s.network = network

	if err := s.wireStation(); err != nil {
		return nil, err
	}
	for i := range cfg.Drones {
		if err := s.wireDrone(i); err != nil {
			return nil, err
		}
	}
	s.debugLog("simulation wired", "run", opts.RunID, "drones", len(s.drones))
	return s, nil
}

func (s *Simulation) telemetry() stats.Sink {
	if s.opts.Sink == nil {
		return s.sink
	}
	return stats.MultiSink{s.sink, s.opts.Sink}
}

func (s *Simulation) observer() display.Observer {
	if s.opts.Display == nil {
		return s.board
	}
	return display.Observers{s.board, s.opts.Display}
}

func (s *Simulation) sessionID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(s.opts.RunID+"/"+name)).String()
}

func (s *Simulation) wireStation() error {
	cfg := s.opts.Config.Station
	engine, err := cfg.Engine()
	if err != nil {
		return fmt.Errorf("station: %w", err)
	}

	sessionID := s.sessionID(verifier.DefaultSource)
	rec := plog.NewRecorder(s.opts.ProtocolLogger, sessionID, plog.RoleStation, s.sched.Now)

	var station *verifier.Station
	conn, err := s.network.Listen(StationAddr(cfg.LocalPort), func(dg transport.Datagram) {
		station.HandleDatagram(dg)
	}, rec)
	if err != nil {
		return fmt.Errorf("station: %w", err)
	}

	station, err = verifier.NewStation(verifier.Config{
		Conn:           conn,
		Scheduler:      s.sched,
		Engine:         engine,
		Policy:         verifier.NewAllowList(cfg.AllowList...),
		Challenges:     commitment.NewChallengeGenerator(s.sched, s.opts.Random),
		SessionID:      sessionID,
		Stats:          s.telemetry(),
		ProtocolLogger: s.opts.ProtocolLogger,
		Logger:         s.opts.Logger,
		OnResult: func(_ string, r verifier.Result) {
			s.results[r]++
		},
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("station: %w", err)
	}
	s.station = station
	s.stConn = conn
	return nil
}

func (s *Simulation) wireDrone(i int) error {
	cfg := s.opts.Config.Drones[i]
	engine, err := cfg.Engine()
	if err != nil {
		return fmt.Errorf("drone %s: %w", cfg.DroneID, err)
	}

	var popts []commitment.ProverOption
	if s.opts.Random != nil {
		popts = append(popts, commitment.WithRandom(s.opts.Random))
	}
	p, err := commitment.NewProver(engine, cfg.DroneID, cfg.Password, popts...)
	if err != nil {
		return fmt.Errorf("drone %s: %w", cfg.DroneID, err)
	}

	sessionID := s.sessionID(cfg.DroneID)
	rec := plog.NewRecorder(s.opts.ProtocolLogger, sessionID, plog.RoleDrone, s.sched.Now)

	var session *prover.Session
	conn, err := s.network.Listen(DroneAddr(i, cfg.LocalPort), func(dg transport.Datagram) {
		session.HandleDatagram(dg)
	}, rec)
	if err != nil {
		return fmt.Errorf("drone %s: %w", cfg.DroneID, err)
	}

	session, err = prover.New(prover.Config{
		Prover:         p,
		Conn:           conn,
		Destination:    s.stConn.LocalAddr(),
		Scheduler:      s.sched,
		AuthTimeout:    cfg.AuthTimeout,
		RetryInterval:  cfg.RetryInterval,
		StartTime:      cfg.StartTime,
		ProofDelay:     cfg.ProofDelay,
		SessionID:      sessionID,
		Stats:          s.telemetry(),
		Display:        s.observer(),
		ProtocolLogger: s.opts.ProtocolLogger,
		Logger:         s.opts.Logger,
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("drone %s: %w", cfg.DroneID, err)
	}
	s.drones = append(s.drones, &drone{session: session, conn: conn, prover: p})
	return nil
}

// Scheduler returns the virtual clock.
func (s *Simulation) Scheduler() *timer.Virtual {
	return s.sched
}

// Network returns the simulated network.
func (s *Simulation) Network() *transport.Network {
	return s.network
}

// Station returns the ground station.
func (s *Simulation) Station() *verifier.Station {
	return s.station
}

// Session returns the drone session for identity.
func (s *Simulation) Session(identity string) (*prover.Session, bool) {
	for _, d := range s.drones {
		if d.session.Identity() == identity {
			return d.session, true
		}
	}
	return nil, false
}

// Start schedules every drone's first request after its start time.
func (s *Simulation) Start() error {
	if s.finished {
		return ErrFinished
	}
	for _, d := range s.drones {
		if err := d.session.ScheduleStart(); err != nil {
			return fmt.Errorf("drone %s: %w", d.session.Identity(), err)
		}
	}
	return nil
}

// RunFor advances virtual time by d and returns the number of events fired.
func (s *Simulation) RunFor(d time.Duration) int {
	return s.sched.RunFor(d)
}

// Finish stops every node, records teardown scalars and summarizes the run.
// Later calls return ErrFinished.
func (s *Simulation) Finish() (Result, error) {
	if s.finished {
		return Result{}, ErrFinished
	}
	s.finished = true

	res := Result{
		RunID:   s.opts.RunID,
		Elapsed: s.sched.Now().Sub(s.opts.Start),
		Sink:    s.sink,
		Board:   s.board,
	}
	for i, d := range s.drones {
		id := d.session.Identity()
		res.Drones = append(res.Drones, DroneSummary{
			Identity:  id,
			Addr:      DroneAddr(i, s.opts.Config.Drones[i].LocalPort),
			State:     d.session.State(),
			Counters:  d.session.Counters(),
			Indicator: s.board.Get(id),
		})
		d.session.Stop()
		d.prover.Destroy()
		d.conn.Close()
	}

	s.station.Stop()
	results := make(map[verifier.Result]int, len(s.results))
	for k, v := range s.results {
		results[k] = v
	}
	res.Station = StationSummary{
		Addr:     s.stConn.LocalAddr(),
		Counters: s.station.Counters(),
		Results:  results,
		Entries:  s.station.Registry().Snapshot(),
	}
	s.stConn.Close()
	res.Network = s.network.Stats()

	s.infoLog("simulation finished",
		"run", res.RunID,
		"elapsed", res.Elapsed,
		"requests", res.Station.Counters.Requests,
		"successes", res.Station.Counters.Successes,
		"failures", res.Station.Counters.Failures)
	return res, nil
}

// Run wires, starts and runs a simulation for its configured duration.
func Run(opts Options) (Result, error) {
	s, err := New(opts)
	if err != nil {
		return Result{}, err
	}
	if err := s.Start(); err != nil {
		return Result{}, err
	}
	s.RunFor(opts.Config.Duration)
	return s.Finish()
}

// WriteSummary prints a plain text summary of res.
func WriteSummary(w io.Writer, res Result) error {
	c := res.Station.Counters
	if _, err := fmt.Fprintf(w, "run %s  elapsed %s\n", res.RunID, res.Elapsed); err != nil {
		return err
	}
	fmt.Fprintf(w, "station %s  requests=%d successes=%d failures=%d%s\n",
		res.Station.Addr, c.Requests, c.Successes, c.Failures, rateSuffix(c))

	keys := make([]verifier.Result, 0, len(res.Station.Results))
	for k := range res.Station.Results {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		fmt.Fprintf(w, "  %-18s %d\n", k, res.Station.Results[k])
	}

	for _, d := range res.Drones {
		dc := d.Counters
		fmt.Fprintf(w, "%-10s %-20s %-26s requests=%d successes=%d failures=%d%s\n",
			d.Identity, d.Addr, d.Indicator, dc.Requests, dc.Successes, dc.Failures, rateSuffix(dc))
	}

	n := res.Network
	_, err := fmt.Fprintf(w, "network sent=%d delivered=%d dropped=%d duplicated=%d unroutable=%d\n",
		n.Sent, n.Delivered, n.Dropped, n.Duplicated, n.Unroutable)
	return err
}

func rateSuffix(c stats.Counters) string {
	if rate, ok := c.SuccessRate(); ok {
		return fmt.Sprintf(" rate=%.1f%%", rate)
	}
	return ""
}

func (s *Simulation) debugLog(msg string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Debug(msg, args...)
	}
}

func (s *Simulation) infoLog(msg string, args ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Info(msg, args...)
	}
}
